package typed

import (
	"sort"
	"strconv"
)

// Value is the logical value an application reads or writes. The set of
// implementations is closed: String, Int, Float, Bool and Collection.
type Value interface {
	isValue()
}

// String is a literal string value
type String string

// Int is a signed integer value stored in decimal form
type Int int64

// Float is a floating point value
type Float float64

// Bool is stored as "1" or "0"
type Bool bool

func (String) isValue()     {}
func (Int) isValue()        {}
func (Float) isValue()      {}
func (Bool) isValue()       {}
func (Collection) isValue() {}

// Entry is one key/value pair of a Collection
type Entry struct {
	Key   string
	Value string
}

// Collection is an ordered run of entries. Whether it is stored as a list or
// a hash is decided at write time from its keys, see IsSequence.
type Collection struct {
	entries []Entry
}

// NewCollection builds a collection that keeps entries in the given order.
// A repeated key overwrites the earlier value in place.
func NewCollection(entries ...Entry) Collection {
	var c Collection
	for _, e := range entries {
		c = c.With(e.Key, e.Value)
	}
	return c
}

// List builds a sequence-like collection keyed 0..n-1
func List(values ...string) Collection {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Key: strconv.Itoa(i), Value: v}
	}
	return Collection{entries: entries}
}

// Hash builds a collection from a map. Go maps have no order, so fields are
// traversed in sorted order.
func Hash(m map[string]string) Collection {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: m[k]}
	}
	return Collection{entries: entries}
}

// With returns a copy of c with key set to value. A new key is appended at the end.
func (c Collection) With(key, value string) Collection {
	entries := make([]Entry, len(c.entries), len(c.entries)+1)
	copy(entries, c.entries)
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = value
			return Collection{entries: entries}
		}
	}
	return Collection{entries: append(entries, Entry{Key: key, Value: value})}
}

// Len returns the number of entries
func (c Collection) Len() int { return len(c.entries) }

// Entries returns a copy of the entries in traversal order
func (c Collection) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Keys returns the keys in traversal order
func (c Collection) Keys() []string {
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key
	}
	return keys
}

// Values returns the values in traversal order, keys discarded
func (c Collection) Values() []string {
	values := make([]string, len(c.entries))
	for i, e := range c.entries {
		values[i] = e.Value
	}
	return values
}

// Map returns the entries as a map
func (c Collection) Map() map[string]string {
	m := make(map[string]string, len(c.entries))
	for _, e := range c.entries {
		m[e.Key] = e.Value
	}
	return m
}

// Lookup returns the value stored under key
func (c Collection) Lookup(key string) (string, bool) {
	for _, e := range c.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// IsList reports whether c would be written as a list
func (c Collection) IsList() bool { return IsSequence(c) }
