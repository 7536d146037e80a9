package bridge

import "sync/atomic"

// Allocator hands out request codes for global correlations.
//
// Codes strictly decrease, so the first code is -1 and a code is never
// reused while the allocator lives. Safe for concurrent use.
type Allocator struct {
	next atomic.Int64
}

// NewAllocator creates an allocator whose first code is -1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NewAllocatorAt creates an allocator whose first code is start-1.
// Used by tests that need a specific tag stream.
func NewAllocatorAt(start int) *Allocator {
	a := &Allocator{}
	a.next.Store(int64(start))
	return a
}

// Next decrements the counter and returns the new value.
func (a *Allocator) Next() int {
	return int(a.next.Add(-1))
}

// Current returns the last code handed out (0 if none).
func (a *Allocator) Current() int {
	return int(a.next.Load())
}
