package store

import (
	"hash/maphash"
	"sync"
	"time"
)

const (
	shardCount = 256
	shardMask  = shardCount - 1

	cleanupTick     = 30 * time.Second
	cleanupCheckMax = 8192
)

// item represents a stored value with minimal overhead. Exactly one of the
// value fields is populated, as selected by DataType.
type item struct {
	Value      string
	Expiration int64 // Unix nano for faster comparison, 0 means none
	DataType   DataType
	List       *List
	Set        *Set
	Hash       *Hash
	ZSet       *SortedSet
}

func (it item) expired(now int64) bool {
	return it.Expiration != 0 && now > it.Expiration
}

type shard struct {
	_  [64]byte
	mu sync.RWMutex
	m  map[string]item
	_  [64]byte
}

// DB is a sharded in-memory keyspace holding strings, lists, sets, hashes and sorted sets
type DB struct {
	shards [shardCount]*shard
	seed   maphash.Seed
	stop   chan struct{}
	once   sync.Once
}

// NewDB creates an empty keyspace and starts the background expiry sweep
func NewDB() *DB {
	db := &DB{
		seed: maphash.MakeSeed(),
		stop: make(chan struct{}),
	}
	for i := 0; i < shardCount; i++ {
		db.shards[i] = &shard{m: make(map[string]item, 64)}
	}
	go db.cleanupExpired()
	return db
}

func (db *DB) shardFor(key string) *shard {
	var h maphash.Hash
	h.SetSeed(db.seed)
	_, _ = h.WriteString(key)
	return db.shards[h.Sum64()&shardMask]
}

// lookup returns the live item for key, evicting it if it has expired
func (db *DB) lookup(key string) (item, bool) {
	s := db.shardFor(key)
	s.mu.RLock()
	it, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return item{}, false
	}
	now := time.Now().UnixNano()
	if it.expired(now) {
		s.mu.Lock()
		// Double-check in case another goroutine replaced it
		if it2, exists := s.m[key]; exists && it2.expired(now) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return item{}, false
	}
	return it, true
}

// Basic operations

// Set stores a string, replacing whatever key held. A zero expiration means none.
func (db *DB) Set(key, value string, expiration time.Time) {
	var exp int64
	if !expiration.IsZero() {
		exp = expiration.UnixNano()
	}
	it := item{Value: value, Expiration: exp, DataType: TypeString}

	s := db.shardFor(key)
	s.mu.Lock()
	s.m[key] = it
	s.mu.Unlock()
}

// Get returns the string at key. It fails with ErrWrongType for other structures.
func (db *DB) Get(key string) (string, bool, error) {
	it, ok := db.lookup(key)
	if !ok {
		return "", false, nil
	}
	if it.DataType != TypeString {
		return "", false, ErrWrongType
	}
	return it.Value, true, nil
}

func (db *DB) Del(key string) bool {
	if _, ok := db.lookup(key); !ok {
		return false
	}
	s := db.shardFor(key)
	s.mu.Lock()
	_, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	return ok
}

func (db *DB) Exists(key string) bool {
	_, ok := db.lookup(key)
	return ok
}

// TTL returns seconds to live, -1 without expiration and -2 for a missing key
func (db *DB) TTL(key string) int64 {
	ms := db.PTTL(key)
	if ms < 0 {
		return ms
	}
	return ms / 1000
}

// PTTL returns milliseconds to live, -1 without expiration and -2 for a missing key
func (db *DB) PTTL(key string) int64 {
	it, ok := db.lookup(key)
	if !ok {
		return -2
	}
	if it.Expiration == 0 {
		return -1
	}
	return (it.Expiration - time.Now().UnixNano()) / int64(time.Millisecond)
}

// Expire sets a relative expiration. A non-positive duration deletes the key.
func (db *DB) Expire(key string, d time.Duration) bool {
	return db.ExpireAt(key, time.Now().Add(d))
}

// ExpireAt sets an absolute expiration. A time in the past deletes the key.
func (db *DB) ExpireAt(key string, at time.Time) bool {
	if _, ok := db.lookup(key); !ok {
		return false
	}
	s := db.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.m[key]
	if !ok {
		return false
	}
	if !at.After(time.Now()) {
		delete(s.m, key)
		return true
	}
	it.Expiration = at.UnixNano()
	s.m[key] = it
	return true
}

// Expiration returns the absolute expiration of key, if any
func (db *DB) Expiration(key string) (time.Time, bool) {
	it, ok := db.lookup(key)
	if !ok || it.Expiration == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, it.Expiration), true
}

func (db *DB) Keys() []string {
	res := make([]string, 0, 256)
	now := time.Now().UnixNano()
	for _, s := range db.shards {
		s.mu.RLock()
		for k, it := range s.m {
			if !it.expired(now) {
				res = append(res, k)
			}
		}
		s.mu.RUnlock()
	}
	return res
}

// Len returns the number of live keys
func (db *DB) Len() int {
	n := 0
	now := time.Now().UnixNano()
	for _, s := range db.shards {
		s.mu.RLock()
		for _, it := range s.m {
			if !it.expired(now) {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n
}

// Flush removes every key
func (db *DB) Flush() {
	for _, s := range db.shards {
		s.mu.Lock()
		s.m = make(map[string]item, 64)
		s.mu.Unlock()
	}
}

func (db *DB) GetDataType(key string) DataType {
	it, ok := db.lookup(key)
	if !ok {
		return TypeNone
	}
	return it.DataType
}

// Data structure helpers

// structure returns the item at key if it holds want. With create set, a
// missing key is initialized by calling init under the shard lock.
func (db *DB) structure(key string, want DataType, create bool, init func() item) (item, bool, error) {
	if it, ok := db.lookup(key); ok {
		if it.DataType != want {
			return item{}, false, ErrWrongType
		}
		return it, true, nil
	}
	if !create {
		return item{}, false, nil
	}

	s := db.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.m[key]; ok && !it.expired(time.Now().UnixNano()) {
		if it.DataType != want {
			return item{}, false, ErrWrongType
		}
		return it, true, nil
	}
	it := init()
	s.m[key] = it
	return it, true, nil
}

func (db *DB) GetList(key string) (*List, error) {
	it, _, err := db.structure(key, TypeList, false, nil)
	return it.List, err
}

func (db *DB) GetSet(key string) (*Set, error) {
	it, _, err := db.structure(key, TypeSet, false, nil)
	return it.Set, err
}

func (db *DB) GetHash(key string) (*Hash, error) {
	it, _, err := db.structure(key, TypeHash, false, nil)
	return it.Hash, err
}

func (db *DB) GetSortedSet(key string) (*SortedSet, error) {
	it, _, err := db.structure(key, TypeSortedSet, false, nil)
	return it.ZSet, err
}

func (db *DB) GetOrCreateList(key string) (*List, error) {
	it, _, err := db.structure(key, TypeList, true, func() item {
		return item{DataType: TypeList, List: NewList()}
	})
	return it.List, err
}

func (db *DB) GetOrCreateSet(key string) (*Set, error) {
	it, _, err := db.structure(key, TypeSet, true, func() item {
		return item{DataType: TypeSet, Set: NewSet()}
	})
	return it.Set, err
}

func (db *DB) GetOrCreateHash(key string) (*Hash, error) {
	it, _, err := db.structure(key, TypeHash, true, func() item {
		return item{DataType: TypeHash, Hash: NewHash()}
	})
	return it.Hash, err
}

func (db *DB) GetOrCreateSortedSet(key string) (*SortedSet, error) {
	it, _, err := db.structure(key, TypeSortedSet, true, func() item {
		return item{DataType: TypeSortedSet, ZSet: NewSortedSet()}
	})
	return it.ZSet, err
}

// Cleanup

func (db *DB) cleanupExpired() {
	t := time.NewTicker(cleanupTick)
	defer t.Stop()
	for {
		select {
		case <-db.stop:
			return
		case <-t.C:
			db.sweep()
		}
	}
}

// sweep drops expired keys, checking at most cleanupCheckMax entries per shard
func (db *DB) sweep() int {
	removed := 0
	now := time.Now().UnixNano()
	for _, s := range db.shards {
		s.mu.Lock()
		checked := 0
		for k, it := range s.m {
			if it.expired(now) {
				delete(s.m, k)
				removed++
			}
			checked++
			if checked >= cleanupCheckMax {
				break
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (db *DB) Close() { db.once.Do(func() { close(db.stop) }) }
