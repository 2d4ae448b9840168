package store

import (
	"sync"

	"typedkv/internal/logger"
)

// Hash maps field names to string values
type Hash struct {
	mu     sync.RWMutex
	fields map[string]string
}

// NewHash creates an empty hash
func NewHash() *Hash {
	return &Hash{fields: make(map[string]string)}
}

// HSet sets a field and reports whether it was new
func (h *Hash) HSet(field, value string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, exists := h.fields[field]
	h.fields[field] = value
	return !exists
}

// HMSet sets every pair of fields and returns how many fields were new
func (h *Hash) HMSet(fields map[string]string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	added := 0
	for f, v := range fields {
		if _, exists := h.fields[f]; !exists {
			added++
		}
		h.fields[f] = v
	}

	logger.Debugf("HMSET set %d fields (%d new), hash size: %d", len(fields), added, len(h.fields))
	return added
}

func (h *Hash) HGet(field string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	value, exists := h.fields[field]
	return value, exists
}

// HDel removes fields and returns how many existed
func (h *Hash) HDel(fields ...string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for _, f := range fields {
		if _, exists := h.fields[f]; exists {
			delete(h.fields, f)
			removed++
		}
	}
	return removed
}

// HGetAll returns a copy of all field-value pairs
func (h *Hash) HGetAll() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]string, len(h.fields))
	for f, v := range h.fields {
		result[f] = v
	}
	return result
}

func (h *Hash) HLen() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.fields)
}
