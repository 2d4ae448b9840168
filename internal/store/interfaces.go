package store

import (
	"errors"
	"time"
)

// ErrWrongType is returned when a key holds a different structure than the one requested
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// DataType represents the type of data structure held by a key
type DataType int

const (
	TypeNone DataType = iota
	TypeString
	TypeList
	TypeSet
	TypeHash
	TypeSortedSet
)

// String returns the name the TYPE command replies with
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeHash:
		return "hash"
	case TypeSortedSet:
		return "zset"
	default:
		return "none"
	}
}

// DataStore represents the interface the server, snapshots and backends work against
type DataStore interface {
	// Basic key-value operations
	Set(key, value string, expiration time.Time)
	Get(key string) (string, bool, error)
	Del(key string) bool
	Exists(key string) bool

	// Expiration operations
	TTL(key string) int64
	PTTL(key string) int64
	Expire(key string, duration time.Duration) bool
	ExpireAt(key string, at time.Time) bool
	Expiration(key string) (time.Time, bool)

	// Key enumeration
	Keys() []string
	Len() int
	Flush()

	// Data structure operations; a missing key yields nil without error
	GetList(key string) (*List, error)
	GetSet(key string) (*Set, error)
	GetHash(key string) (*Hash, error)
	GetSortedSet(key string) (*SortedSet, error)

	GetOrCreateList(key string) (*List, error)
	GetOrCreateSet(key string) (*Set, error)
	GetOrCreateHash(key string) (*Hash, error)
	GetOrCreateSortedSet(key string) (*SortedSet, error)

	// Introspection
	GetDataType(key string) DataType

	// Lifecycle
	Close()
}

// Ensure the database implementation satisfies the interface
var _ DataStore = (*DB)(nil)
