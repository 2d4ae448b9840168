package typed

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// SetString stores value as a string
func (a *Accessor) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return a.write(ctx, key, TypeString, ttl, false, func(ctx context.Context) (bool, error) {
		return a.client.Set(ctx, key, value)
	})
}

// SetInt stores n in decimal form
func (a *Accessor) SetInt(ctx context.Context, key string, n int64, ttl time.Duration) error {
	return a.SetString(ctx, key, strconv.FormatInt(n, 10), ttl)
}

// SetFloat stores f in its shortest decimal form. NaN and infinities are rejected.
func (a *Accessor) SetFloat(ctx context.Context, key string, f float64, ttl time.Duration) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &InvalidArgumentError{Description: fmt.Sprintf("float %v is not finite", f)}
	}
	return a.SetString(ctx, key, strconv.FormatFloat(f, 'f', -1, 64), ttl)
}

// SetBool stores "1" for true and "0" for false
func (a *Accessor) SetBool(ctx context.Context, key string, b bool, ttl time.Duration) error {
	if b {
		return a.SetString(ctx, key, "1", ttl)
	}
	return a.SetString(ctx, key, "0", ttl)
}

// SetHash replaces key with a hash of c's entries
func (a *Accessor) SetHash(ctx context.Context, key string, c Collection, ttl time.Duration) error {
	return a.write(ctx, key, TypeHash, ttl, c.Len() == 0, func(ctx context.Context) (bool, error) {
		return a.client.HMSet(ctx, key, c.Map())
	})
}

// SetList replaces key with a list of c's values in traversal order; keys are dropped
func (a *Accessor) SetList(ctx context.Context, key string, c Collection, ttl time.Duration) error {
	return a.write(ctx, key, TypeList, ttl, c.Len() == 0, func(ctx context.Context) (bool, error) {
		return a.client.RPush(ctx, key, c.Values()...)
	})
}

// SetSet replaces key with a set of c's values. Duplicates collapse.
func (a *Accessor) SetSet(ctx context.Context, key string, c Collection, ttl time.Duration) error {
	return a.write(ctx, key, TypeSet, ttl, c.Len() == 0, func(ctx context.Context) (bool, error) {
		return a.client.SAdd(ctx, key, c.Values()...)
	})
}

// SetSortedSet replaces key with a sorted set of c's values. Each entry's
// integer key is its score; any other key scores 0.
func (a *Accessor) SetSortedSet(ctx context.Context, key string, c Collection, ttl time.Duration) error {
	return a.write(ctx, key, TypeSortedSet, ttl, c.Len() == 0, func(ctx context.Context) (bool, error) {
		members := make([]ZMember, 0, c.Len())
		for _, e := range c.entries {
			members = append(members, ZMember{Score: scoreOf(e.Key), Member: e.Value})
		}
		return a.client.ZAdd(ctx, key, members...)
	})
}

// SetArray stores c as a list when it is sequence-like and as a hash otherwise
func (a *Accessor) SetArray(ctx context.Context, key string, c Collection, ttl time.Duration) error {
	if IsSequence(c) {
		return a.SetList(ctx, key, c, ttl)
	}
	return a.SetHash(ctx, key, c, ttl)
}

// Set stores any logical value using the structure its type calls for
func (a *Accessor) Set(ctx context.Context, key string, v Value, ttl time.Duration) error {
	switch v := v.(type) {
	case Collection:
		return a.SetArray(ctx, key, v, ttl)
	case String:
		return a.SetString(ctx, key, string(v), ttl)
	case Int:
		return a.SetInt(ctx, key, int64(v), ttl)
	case Float:
		return a.SetFloat(ctx, key, float64(v), ttl)
	case Bool:
		return a.SetBool(ctx, key, bool(v), ttl)
	case nil:
		return &InvalidArgumentError{Description: "nil value"}
	default:
		return &InvalidArgumentError{Description: fmt.Sprintf("unsupported value type %T", v)}
	}
}

// write removes any previous value at key, runs put and applies ttl.
// An empty collection skips put and leaves the key absent.
func (a *Accessor) write(ctx context.Context, key string, t NativeType, ttl time.Duration, empty bool, put func(context.Context) (bool, error)) error {
	existed, err := a.Exists(ctx, key)
	if err != nil {
		return err
	}
	if existed {
		if err := a.client.Del(ctx, key); err != nil {
			return fmt.Errorf("del %q: %w", key, err)
		}
	}

	log := a.log.WithFields(logrus.Fields{"key": key, "type": t.String(), "replaced": existed})
	if empty {
		log.Debug("empty collection, key left absent")
		return nil
	}

	ok, err := put(ctx)
	if err != nil {
		return &PersistenceError{Key: key, Op: "write " + t.String(), PriorDeleted: existed, Err: err}
	}
	if !ok {
		return &PersistenceError{Key: key, Op: "write " + t.String(), PriorDeleted: existed}
	}

	if err := a.expire(ctx, key, ttl); err != nil {
		return err
	}
	log.WithField("ttl", ttl).Debug("stored value")
	return nil
}
