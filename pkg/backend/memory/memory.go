// Package memory adapts the in-process store to typed.Client, for embedding
// and for tests that do not want a network round trip.
package memory

import (
	"context"
	"errors"
	"time"

	"typedkv/internal/store"
	"typedkv/pkg/typed"
)

// ErrNil is returned by Get for a key that holds no string
var ErrNil = errors.New("memory: nil")

// Client implements typed.Client and typed.TTLReader over a store.DataStore
type Client struct {
	db    store.DataStore
	owned bool
}

var (
	_ typed.Client    = (*Client)(nil)
	_ typed.TTLReader = (*Client)(nil)
)

// New returns a client over a fresh store. Close releases it.
func New() *Client {
	return &Client{db: store.NewDB(), owned: true}
}

// Wrap returns a client over an existing store. Close leaves it open.
func Wrap(db store.DataStore) *Client {
	return &Client{db: db}
}

// Store exposes the underlying store
func (c *Client) Store() store.DataStore { return c.db }

// Close releases the store if the client created it
func (c *Client) Close() error {
	if c.owned {
		c.db.Close()
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.db.Exists(key), nil
}

func (c *Client) Type(ctx context.Context, key string) (typed.NativeType, error) {
	if err := ctx.Err(); err != nil {
		return typed.TypeUnknown, err
	}
	return nativeType(c.db.GetDataType(key)), nil
}

func nativeType(t store.DataType) typed.NativeType {
	switch t {
	case store.TypeString:
		return typed.TypeString
	case store.TypeList:
		return typed.TypeList
	case store.TypeHash:
		return typed.TypeHash
	case store.TypeSet:
		return typed.TypeSet
	case store.TypeSortedSet:
		return typed.TypeSortedSet
	default:
		return typed.TypeUnknown
	}
}

func (c *Client) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.db.Del(key)
	return nil
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.db.Expire(key, ttl), nil
}

// TTL follows the go-redis PTTL reply: typed.NoExpiry (-1) for a persistent
// key, the raw sentinel -2 for a missing one, milliseconds otherwise
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch ms := c.db.PTTL(key); {
	case ms == -1:
		return typed.NoExpiry, nil
	case ms < 0:
		return time.Duration(ms), nil
	default:
		return time.Duration(ms) * time.Millisecond, nil
	}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok, err := c.db.Get(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNil
	}
	return v, nil
}

func (c *Client) Set(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.db.Set(key, value, time.Time{})
	return true, nil
}

func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := c.db.GetHash(key)
	if err != nil || h == nil {
		return map[string]string{}, err
	}
	return h.HGetAll(), nil
}

func (c *Client) HMSet(ctx context.Context, key string, fields map[string]string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	h, err := c.db.GetOrCreateHash(key)
	if err != nil {
		return false, err
	}
	h.HMSet(fields)
	return true, nil
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, err := c.db.GetList(key)
	if err != nil || l == nil {
		return []string{}, err
	}
	return l.LRange(int(start), int(stop)), nil
}

func (c *Client) RPush(ctx context.Context, key string, values ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(values) == 0 {
		return false, nil
	}
	l, err := c.db.GetOrCreateList(key)
	if err != nil {
		return false, err
	}
	l.RPush(values...)
	return true, nil
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := c.db.GetSet(key)
	if err != nil || s == nil {
		return []string{}, err
	}
	return s.SMembers(), nil
}

func (c *Client) SAdd(ctx context.Context, key string, members ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(members) == 0 {
		return false, nil
	}
	s, err := c.db.GetOrCreateSet(key)
	if err != nil {
		return false, err
	}
	s.SAdd(members...)
	return true, nil
}

func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	z, err := c.db.GetSortedSet(key)
	if err != nil || z == nil {
		return []string{}, err
	}
	return z.ZRangeStrings(int(start), int(stop), false), nil
}

func (c *Client) ZAdd(ctx context.Context, key string, members ...typed.ZMember) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(members) == 0 {
		return false, nil
	}
	z, err := c.db.GetOrCreateSortedSet(key)
	if err != nil {
		return false, err
	}
	entries := make([]store.ZEntry, len(members))
	for i, m := range members {
		entries[i] = store.ZEntry{Member: m.Member, Score: m.Score}
	}
	z.ZAdd(entries...)
	return true, nil
}
