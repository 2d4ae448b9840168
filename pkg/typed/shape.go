package typed

import "strconv"

// IsSequence reports whether c is sequence-like: its keys are exactly the
// integers 0, 1, ..., n-1 in traversal order. Any non-integer key, a first key
// other than 0, or a gap makes it a mapping. An empty collection is a sequence.
func IsSequence(c Collection) bool {
	next := int64(0)
	for _, e := range c.entries {
		n, ok := intKey(e.Key)
		if !ok || n != next {
			return false
		}
		next++
	}
	return true
}

// intKey parses key as an integer key. Only the canonical decimal form counts,
// so "07", "+1" and "1.0" are string keys.
func intKey(key string) (int64, bool) {
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != key {
		return 0, false
	}
	return n, true
}

// scoreOf returns the sorted set score carried by an entry key; non-integer keys score 0
func scoreOf(key string) float64 {
	if n, ok := intKey(key); ok {
		return float64(n)
	}
	return 0
}
