package typed

import (
	"context"
	"time"
)

// Client is the capability set the accessor needs from a connected store.
//
// Write methods return false when the store rejects the write; the error
// result is reserved for transport failures.
type Client interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Type reports the native structure of an existing key
	Type(ctx context.Context, key string) (NativeType, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) (bool, error)

	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HMSet(ctx context.Context, key string, fields map[string]string) (bool, error)

	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// RPush appends values to the tail so iteration order survives a round trip
	RPush(ctx context.Context, key string, values ...string) (bool, error)

	SMembers(ctx context.Context, key string) ([]string, error)
	SAdd(ctx context.Context, key string, members ...string) (bool, error)

	// ZRange returns members between start and stop by ascending score
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZAdd(ctx context.Context, key string, members ...ZMember) (bool, error)
}

// ZMember is a sorted set member with its score
type ZMember struct {
	Score  float64
	Member string
}

// NoExpiry is returned by TTL for keys without an expiration
const NoExpiry = time.Duration(-1)

// TTLReader is implemented by clients that can report the remaining time to live.
// It reports NoExpiry for a persistent key and the unscaled -2 for a missing
// one, as go-redis does for PTTL.
type TTLReader interface {
	TTL(ctx context.Context, key string) (time.Duration, error)
}
