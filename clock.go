package kv

import (
	"sync"

	"github.com/DeresiuPhoi/distributed-lab2/internal/numeric"
)

// Clock is a Lamport logical clock. It imposes a causal order on the
// events of a cluster without reference to wall-clock time: a node
// ticks its clock once for every local write and merges the timestamp
// of every replicated write it receives. The counter never decreases
// over the lifetime of the node.
//
// A clock is safe for concurrent use.
type Clock struct {
	// The current value of the counter.
	counter uint64

	mu sync.Mutex
}

// NewClock creates a new clock with the counter at zero.
func NewClock() *Clock {
	return &Clock{}
}

// Tick increments the counter for a local event and returns the new value.
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter++
	return c.counter
}

// Merge folds the timestamp of a received event into the counter and
// returns the new value. The counter becomes one greater than the
// maximum of its current value and the received timestamp, so any
// local event that causally follows the received one is stamped
// strictly after it.
func (c *Clock) Merge(received uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter = numeric.Max(c.counter, received) + 1
	return c.counter
}

// Time returns the current value of the counter without modifying it.
func (c *Clock) Time() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counter
}
