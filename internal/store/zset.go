package store

import (
	"sort"
	"strconv"
	"sync"
)

// ZEntry holds a sorted set member and its score
type ZEntry struct {
	Member string
	Score  float64
}

// SortedSet keeps a score map and a lazily rebuilt slice ordered by (score, member)
type SortedSet struct {
	mu     sync.Mutex
	scores map[string]float64
	order  []ZEntry
	dirty  bool // true if order needs rebuild
}

// NewSortedSet creates an empty sorted set
func NewSortedSet() *SortedSet {
	return &SortedSet{scores: make(map[string]float64)}
}

// ZAdd adds or updates members. Returns count of new insertions.
func (z *SortedSet) ZAdd(entries ...ZEntry) int {
	z.mu.Lock()
	defer z.mu.Unlock()

	added := 0
	for _, e := range entries {
		if _, exists := z.scores[e.Member]; !exists {
			added++
		}
		z.scores[e.Member] = e.Score
	}
	z.dirty = true
	return added
}

// ZRem removes members, returns count removed
func (z *SortedSet) ZRem(members ...string) int {
	z.mu.Lock()
	defer z.mu.Unlock()

	removed := 0
	for _, m := range members {
		if _, ok := z.scores[m]; ok {
			delete(z.scores, m)
			removed++
		}
	}
	if removed > 0 {
		z.dirty = true
	}
	return removed
}

func (z *SortedSet) ZCard() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.scores)
}

func (z *SortedSet) ZScore(member string) (float64, bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	s, ok := z.scores[member]
	return s, ok
}

// ZRange returns entries by rank in [start, stop] inclusive; negative indices count from the end
func (z *SortedSet) ZRange(start, stop int) []ZEntry {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.dirty {
		z.rebuild()
	}

	n := len(z.order)
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return []ZEntry{}
	}

	res := make([]ZEntry, stop-start+1)
	copy(res, z.order[start:stop+1])
	return res
}

// ZRangeStrings flattens ZRange into members, with scores interleaved when withScores is set
func (z *SortedSet) ZRangeStrings(start, stop int, withScores bool) []string {
	entries := z.ZRange(start, stop)
	size := len(entries)
	if withScores {
		size *= 2
	}
	res := make([]string, 0, size)
	for _, e := range entries {
		res = append(res, e.Member)
		if withScores {
			res = append(res, strconv.FormatFloat(e.Score, 'f', -1, 64))
		}
	}
	return res
}

// rebuild assumes caller holds z.mu
func (z *SortedSet) rebuild() {
	z.order = z.order[:0]
	for m, s := range z.scores {
		z.order = append(z.order, ZEntry{Member: m, Score: s})
	}
	sort.Slice(z.order, func(i, j int) bool {
		if z.order[i].Score == z.order[j].Score {
			return z.order[i].Member < z.order[j].Member
		}
		return z.order[i].Score < z.order[j].Score
	})
	z.dirty = false
}
