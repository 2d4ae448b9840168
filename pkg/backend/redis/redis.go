// Package redis adapts a go-redis client to typed.Client
package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"typedkv/pkg/typed"

	goredis "github.com/redis/go-redis/v9"
)

// Nil is the reply go-redis returns for a missing key
const Nil = goredis.Nil

// Client implements typed.Client and typed.TTLReader over go-redis
type Client struct {
	rdb   goredis.UniversalClient
	owned bool
}

var (
	_ typed.Client    = (*Client)(nil)
	_ typed.TTLReader = (*Client)(nil)
)

// Options returns connection options for target, which is either a
// redis:// URL or a bare host:port address.
func Options(target string) (*goredis.Options, error) {
	if strings.Contains(target, "://") {
		opts, err := goredis.ParseURL(target)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	if target == "" {
		target = "localhost:6379"
	}
	return &goredis.Options{Addr: target}, nil
}

// New connects to target and verifies the connection with PING
func New(ctx context.Context, target string) (*Client, error) {
	opts, err := Options(target)
	if err != nil {
		return nil, err
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb, owned: true}, nil
}

// Wrap adapts an already configured client. Close leaves it open.
func Wrap(rdb goredis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// Raw exposes the go-redis client
func (c *Client) Raw() goredis.UniversalClient { return c.rdb }

// Close closes the connection pool if New created it
func (c *Client) Close() error {
	if c.owned {
		return c.rdb.Close()
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) Type(ctx context.Context, key string) (typed.NativeType, error) {
	tag, err := c.rdb.Type(ctx, key).Result()
	if err != nil {
		return typed.TypeUnknown, err
	}
	t, _ := typed.ParseNativeType(tag)
	return t, nil
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Expire uses PEXPIRE so sub-second durations survive
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.PExpire(ctx, key, ttl).Result()
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.PTTL(ctx, key).Result()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key, value string) (bool, error) {
	status, err := c.rdb.Set(ctx, key, value, 0).Result()
	if err != nil {
		return false, err
	}
	return status == "OK", nil
}

func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// HMSet sends fields in sorted order so the command is deterministic
func (c *Client) HMSet(ctx context.Context, key string, fields map[string]string) (bool, error) {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	args := make([]interface{}, 0, 2*len(names))
	for _, f := range names {
		args = append(args, f, fields[f])
	}
	return c.rdb.HMSet(ctx, key, args...).Result()
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, stop).Result()
}

func (c *Client) RPush(ctx context.Context, key string, values ...string) (bool, error) {
	n, err := c.rdb.RPush(ctx, key, toArgs(values)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

// SAdd succeeds whenever the store accepts the command; the count of new members is not a failure signal
func (c *Client) SAdd(ctx context.Context, key string, members ...string) (bool, error) {
	if err := c.rdb.SAdd(ctx, key, toArgs(members)...).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.ZRange(ctx, key, start, stop).Result()
}

func (c *Client) ZAdd(ctx context.Context, key string, members ...typed.ZMember) (bool, error) {
	zs := make([]goredis.Z, len(members))
	for i, m := range members {
		zs[i] = goredis.Z{Score: m.Score, Member: m.Member}
	}
	if err := c.rdb.ZAdd(ctx, key, zs...).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
