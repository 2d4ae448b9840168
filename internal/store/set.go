package store

import (
	"sync"

	"typedkv/internal/logger"
)

// Set is an unordered collection of unique strings
type Set struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{items: make(map[string]struct{})}
}

// SAdd adds members and returns how many were new
func (s *Set) SAdd(members ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, m := range members {
		if _, exists := s.items[m]; !exists {
			s.items[m] = struct{}{}
			added++
		}
	}

	logger.Debugf("SADD added %d new elements, set size: %d", added, len(s.items))
	return added
}

// SRem removes members and returns how many were present
func (s *Set) SRem(members ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, m := range members {
		if _, exists := s.items[m]; exists {
			delete(s.items, m)
			removed++
		}
	}
	return removed
}

func (s *Set) SIsMember(member string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.items[member]
	return exists
}

// SMembers returns all members in map iteration order
func (s *Set) SMembers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]string, 0, len(s.items))
	for m := range s.items {
		members = append(members, m)
	}
	return members
}

func (s *Set) SCard() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
