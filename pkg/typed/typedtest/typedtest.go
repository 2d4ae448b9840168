// Package typedtest holds behavior suites shared by every typed.Client
// implementation. A backend package runs them from its own tests:
//
//	func TestConformance(t *testing.T) {
//		typedtest.RunClient(t, newClient)
//		typedtest.RunAccessor(t, newClient)
//	}
package typedtest

import (
	"context"
	"testing"
	"time"

	"typedkv/pkg/typed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a client over an empty keyspace. It registers its own cleanup.
type Factory func(t *testing.T) typed.Client

// RunClient checks the raw client contract the accessor builds on
func RunClient(t *testing.T, newClient Factory) {
	ctx := context.Background()

	t.Run("StringRoundTrip", func(t *testing.T) {
		c := newClient(t)
		ok, err := c.Set(ctx, "k", "v")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)

		exists, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, exists)

		typ, err := c.Type(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeString, typ)
	})

	t.Run("MissingKey", func(t *testing.T) {
		c := newClient(t)
		exists, err := c.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)

		ok, err := c.Expire(ctx, "missing", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		if r, ok := c.(typed.TTLReader); ok {
			ttl, err := r.TTL(ctx, "missing")
			require.NoError(t, err)
			assert.Equal(t, time.Duration(-2), ttl)
		}
	})

	t.Run("Del", func(t *testing.T) {
		c := newClient(t)
		_, err := c.Set(ctx, "k", "v")
		require.NoError(t, err)
		require.NoError(t, c.Del(ctx, "k"))

		exists, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
		require.NoError(t, c.Del(ctx, "k"))
	})

	t.Run("Hash", func(t *testing.T) {
		c := newClient(t)
		fields := map[string]string{"name": "ada", "lang": "go", "empty": ""}
		ok, err := c.HMSet(ctx, "h", fields)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := c.HGetAll(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, fields, got)

		typ, err := c.Type(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeHash, typ)
	})

	t.Run("ListKeepsPushOrder", func(t *testing.T) {
		c := newClient(t)
		ok, err := c.RPush(ctx, "l", "a", "b")
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = c.RPush(ctx, "l", "c")
		require.NoError(t, err)

		got, err := c.LRange(ctx, "l", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, got)

		got, err = c.LRange(ctx, "l", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, got)

		typ, err := c.Type(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeList, typ)
	})

	t.Run("SetCollapsesDuplicates", func(t *testing.T) {
		c := newClient(t)
		ok, err := c.SAdd(ctx, "s", "a", "b", "a")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := c.SMembers(ctx, "s")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, got)

		typ, err := c.Type(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeSet, typ)
	})

	t.Run("SortedSetOrdersByScore", func(t *testing.T) {
		c := newClient(t)
		ok, err := c.ZAdd(ctx, "z",
			typed.ZMember{Score: 3, Member: "c"},
			typed.ZMember{Score: -1, Member: "a"},
			typed.ZMember{Score: 2.5, Member: "b"},
		)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := c.ZRange(ctx, "z", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, got)

		typ, err := c.Type(ctx, "z")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeSortedSet, typ)
	})

	t.Run("ExpireAndTTL", func(t *testing.T) {
		c := newClient(t)
		_, err := c.Set(ctx, "k", "v")
		require.NoError(t, err)

		r, ok := c.(typed.TTLReader)
		if ok {
			ttl, err := r.TTL(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, typed.NoExpiry, ttl)
		}

		set, err := c.Expire(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.True(t, set)

		if ok {
			ttl, err := r.TTL(ctx, "k")
			require.NoError(t, err)
			assert.InDelta(t, float64(time.Minute), float64(ttl), float64(2*time.Second))
		}

		_, err = c.Expire(ctx, "k", 30*time.Millisecond)
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			exists, err := c.Exists(ctx, "k")
			return err == nil && !exists
		}, 2*time.Second, 10*time.Millisecond)
	})
}
