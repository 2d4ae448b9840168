package typed

import "strings"

// NativeType is the structure the store reports for an existing key
type NativeType int

const (
	// TypeUnknown covers tags the store reports that this package does not model (streams, modules)
	TypeUnknown NativeType = iota
	TypeString
	TypeList
	TypeHash
	TypeSet
	TypeSortedSet
)

// collectionTypes are the native structures GetArray accepts
var collectionTypes = []NativeType{TypeList, TypeHash, TypeSet, TypeSortedSet}

// String returns the tag used by the store's TYPE command
func (t NativeType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeSortedSet:
		return "zset"
	default:
		return "unknown"
	}
}

// IsCollection reports whether t is one of the four collection structures
func (t NativeType) IsCollection() bool {
	switch t {
	case TypeList, TypeHash, TypeSet, TypeSortedSet:
		return true
	}
	return false
}

// ParseNativeType maps a TYPE reply to a NativeType. The second result is false
// for "none", which means the key does not exist.
func ParseNativeType(tag string) (NativeType, bool) {
	switch strings.ToLower(tag) {
	case "none", "":
		return TypeUnknown, false
	case "string":
		return TypeString, true
	case "list":
		return TypeList, true
	case "hash":
		return TypeHash, true
	case "set":
		return TypeSet, true
	case "zset":
		return TypeSortedSet, true
	default:
		return TypeUnknown, true
	}
}
