package cache

import (
	"sync"
	"sync/atomic"
)

// Cloner is implemented by the device entity types.
type Cloner[T any] interface {
	Clone() T
}

// Collection is one fenced, copy-on-read entity list.
//
// Writers take a sequence number with Begin before issuing the remote call and
// pass it to Commit afterwards. A commit whose sequence is older than the last
// committed one is dropped, so a slow load cannot overwrite a newer replace.
type Collection[T Cloner[T]] struct {
	mu        sync.RWMutex
	items     []T
	loaded    bool
	issued    atomic.Uint64
	committed uint64
}

// Begin reserves the next sequence number.
func (c *Collection[T]) Begin() uint64 {
	return c.issued.Add(1)
}

// Commit replaces the items when seq is not stale and reports whether it did.
func (c *Collection[T]) Commit(seq uint64, items []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.committed {
		return false
	}
	c.committed = seq
	c.items = cloneAll(items)
	c.loaded = true
	return true
}

// Patch applies a confirmed edit to a private copy of the items and swaps it
// in. It does not take a sequence number; the reload that follows every
// confirmed edit is fenced instead.
func (c *Collection[T]) Patch(edit func([]T) []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = edit(cloneAll(c.items))
}

// Items returns a deep copy of the current items.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.items)
}

// Loaded reports whether any commit has happened.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func cloneAll[T Cloner[T]](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
