package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDBSetGet(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Time{})
	value, exists, err := db.Get("key1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "value1", value)

	value, exists, err = db.Get("nonexistent")
	require.NoError(t, err)
	require.False(t, exists)
	require.Equal(t, "", value)
}

func TestDBGetWrongType(t *testing.T) {
	db := NewDB()
	defer db.Close()

	l, err := db.GetOrCreateList("list")
	require.NoError(t, err)
	l.RPush("a")

	_, _, err = db.Get("list")
	require.ErrorIs(t, err, ErrWrongType)
}

func TestDBDel(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Time{})
	require.True(t, db.Exists("key1"))

	require.True(t, db.Del("key1"))
	require.False(t, db.Exists("key1"))
	require.False(t, db.Del("nonexistent"))
}

func TestDBTTL(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Time{})
	require.Equal(t, int64(-1), db.TTL("key1"))
	require.Equal(t, int64(-2), db.TTL("nonexistent"))

	db.Set("key2", "value2", time.Now().Add(2*time.Second))
	ttl := db.TTL("key2")
	require.GreaterOrEqual(t, ttl, int64(0))
	require.LessOrEqual(t, ttl, int64(2))

	db.Set("key3", "value3", time.Now().Add(-1*time.Second))
	require.Equal(t, int64(-2), db.TTL("key3"))
}

func TestDBPTTL(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Now().Add(1*time.Second))
	pttl := db.PTTL("key1")
	require.Greater(t, pttl, int64(0))
	require.LessOrEqual(t, pttl, int64(1000))

	require.Equal(t, int64(-2), db.PTTL("nonexistent"))
}

func TestDBExpire(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Time{})
	require.True(t, db.Expire("key1", 2*time.Second))
	ttl := db.TTL("key1")
	require.GreaterOrEqual(t, ttl, int64(1))
	require.LessOrEqual(t, ttl, int64(2))

	exp, ok := db.Expiration("key1")
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(2*time.Second), exp, time.Second)

	require.False(t, db.Expire("nonexistent", time.Second))

	// A past deadline removes the key
	require.True(t, db.Expire("key1", -time.Second))
	require.False(t, db.Exists("key1"))
}

func TestDBExpireStructures(t *testing.T) {
	db := NewDB()
	defer db.Close()

	h, err := db.GetOrCreateHash("h")
	require.NoError(t, err)
	h.HSet("f", "v")

	require.True(t, db.Expire("h", 50*time.Millisecond))
	time.Sleep(80 * time.Millisecond)

	require.False(t, db.Exists("h"))
	h, err = db.GetHash("h")
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestDBExpiration(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Now().Add(100*time.Millisecond))

	value, exists, _ := db.Get("key1")
	require.True(t, exists)
	require.Equal(t, "value1", value)

	time.Sleep(150 * time.Millisecond)

	value, exists, _ = db.Get("key1")
	require.False(t, exists)
	require.Equal(t, "", value)
}

func TestDBKeysLenFlush(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Time{})
	db.Set("key2", "value2", time.Time{})
	_, err := db.GetOrCreateSet("key3")
	require.NoError(t, err)

	keys := db.Keys()
	require.Len(t, keys, 3)
	require.ElementsMatch(t, []string{"key1", "key2", "key3"}, keys)
	require.Equal(t, 3, db.Len())

	db.Flush()
	require.Equal(t, 0, db.Len())
	require.Empty(t, db.Keys())
}

func TestDBDataTypes(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("s", "v", time.Time{})
	_, err := db.GetOrCreateList("l")
	require.NoError(t, err)
	_, err = db.GetOrCreateSet("set")
	require.NoError(t, err)
	_, err = db.GetOrCreateHash("h")
	require.NoError(t, err)
	_, err = db.GetOrCreateSortedSet("z")
	require.NoError(t, err)

	require.Equal(t, TypeString, db.GetDataType("s"))
	require.Equal(t, TypeList, db.GetDataType("l"))
	require.Equal(t, TypeSet, db.GetDataType("set"))
	require.Equal(t, TypeHash, db.GetDataType("h"))
	require.Equal(t, TypeSortedSet, db.GetDataType("z"))
	require.Equal(t, TypeNone, db.GetDataType("missing"))

	require.Equal(t, "zset", TypeSortedSet.String())
	require.Equal(t, "none", TypeNone.String())
}

func TestDBStructureWrongType(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("s", "v", time.Time{})

	_, err := db.GetOrCreateList("s")
	require.ErrorIs(t, err, ErrWrongType)
	_, err = db.GetOrCreateHash("s")
	require.ErrorIs(t, err, ErrWrongType)
	_, err = db.GetSet("s")
	require.ErrorIs(t, err, ErrWrongType)
	_, err = db.GetSortedSet("s")
	require.ErrorIs(t, err, ErrWrongType)

	// The string survives the failed lookups
	v, ok, err := db.Get("s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestDBGetOrCreateReturnsSameStructure(t *testing.T) {
	db := NewDB()
	defer db.Close()

	l1, err := db.GetOrCreateList("l")
	require.NoError(t, err)
	l1.RPush("a")

	l2, err := db.GetOrCreateList("l")
	require.NoError(t, err)
	require.Same(t, l1, l2)

	l3, err := db.GetList("l")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, l3.LRange(0, -1))

	missing, err := db.GetList("missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDBConcurrentAccess(t *testing.T) {
	db := NewDB()
	defer db.Close()

	var wg sync.WaitGroup
	numGoroutines := 10
	numOperations := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key_%d_%d", id, j)
				db.Set(key, fmt.Sprintf("value_%d_%d", id, j), time.Time{})
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				_, _, _ = db.Get(fmt.Sprintf("key_%d_%d", id, j))
			}
		}(i)
	}

	wg.Wait()

	require.Len(t, db.Keys(), numGoroutines*numOperations)
}

func TestDBSweep(t *testing.T) {
	db := NewDB()
	defer db.Close()

	db.Set("key1", "value1", time.Now().Add(20*time.Millisecond))
	db.Set("key2", "value2", time.Time{})

	time.Sleep(40 * time.Millisecond)

	require.Equal(t, 1, db.sweep())
	require.Equal(t, 1, db.Len())
	require.True(t, db.Exists("key2"))
}

func TestDBCloseIsIdempotent(t *testing.T) {
	db := NewDB()
	db.Close()
	require.NotPanics(t, db.Close)
}
