package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable UUID-shaped ids for golden output.
//
// The nth id is 00000000-0000-7000-8000-<n as 12 digits>, which sorts in
// generation order like a real UUIDv7.
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

// NewSequentialIDs creates a generator whose first id ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next id. Implements journal.IDGenerator.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", g.n)
}
