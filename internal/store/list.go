package store

import (
	"sync"

	"typedkv/internal/logger"
)

// List is a Redis list backed by a growable deque
type List struct {
	mu    sync.RWMutex
	items []string
	head  int // Index of first element
	tail  int // Index of last element + 1
}

// NewList creates an empty list
func NewList() *List {
	initialCap := 16
	return &List{
		items: make([]string, initialCap),
		head:  initialCap / 2,
		tail:  initialCap / 2,
	}
}

// LPush inserts elements at the head one by one, so the last argument ends up first
func (l *List) LPush(elements ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.head-len(elements) < 0 {
		l.grow(len(elements))
	}
	for _, element := range elements {
		l.head--
		l.items[l.head] = element
	}

	length := l.tail - l.head
	logger.Debugf("LPUSH added %d elements, list length: %d", len(elements), length)
	return length
}

// RPush appends elements at the tail in argument order
func (l *List) RPush(elements ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tail+len(elements) > len(l.items) {
		l.grow(len(elements))
	}
	for _, element := range elements {
		l.items[l.tail] = element
		l.tail++
	}

	length := l.tail - l.head
	logger.Debugf("RPUSH added %d elements, list length: %d", len(elements), length)
	return length
}

// grow expands the backing slice and recenters elements
func (l *List) grow(minSpace int) {
	currentLen := l.tail - l.head
	newCap := len(l.items) * 2
	for newCap < currentLen+2*minSpace+16 {
		newCap *= 2
	}

	newItems := make([]string, newCap)
	newHead := (newCap - currentLen) / 2
	copy(newItems[newHead:], l.items[l.head:l.tail])

	l.items = newItems
	l.head = newHead
	l.tail = newHead + currentLen
}

// LPop removes and returns the head element
func (l *List) LPop() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.head >= l.tail {
		return "", false
	}
	element := l.items[l.head]
	l.items[l.head] = "" // Clear reference for GC
	l.head++
	return element, true
}

// RPop removes and returns the tail element
func (l *List) RPop() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.head >= l.tail {
		return "", false
	}
	l.tail--
	element := l.items[l.tail]
	l.items[l.tail] = ""
	return element, true
}

// LLen returns the length of the list
func (l *List) LLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tail - l.head
}

// LRange returns elements from start to stop inclusive; negative indices count from the tail
func (l *List) LRange(start, stop int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	length := l.tail - l.head
	if length == 0 {
		return []string{}
	}
	if start < 0 {
		start = length + start
	}
	if stop < 0 {
		stop = length + stop
	}
	if start < 0 {
		start = 0
	}
	if start >= length || start > stop {
		return []string{}
	}
	if stop >= length {
		stop = length - 1
	}

	result := make([]string, stop-start+1)
	copy(result, l.items[l.head+start:l.head+stop+1])
	return result
}

// LIndex returns the element at index; negative indices count from the tail
func (l *List) LIndex(index int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	length := l.tail - l.head
	if index < 0 {
		index = length + index
	}
	if index < 0 || index >= length {
		return "", false
	}
	return l.items[l.head+index], true
}
