package kv

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClockTick checks that ticking the clock advances it by exactly one and
// that reading the clock does not advance it.
func TestClockTick(t *testing.T) {
	clock := NewClock()
	require.Equal(t, uint64(0), clock.Time())

	require.Equal(t, uint64(1), clock.Tick())
	require.Equal(t, uint64(2), clock.Tick())

	require.Equal(t, uint64(2), clock.Time())
	require.Equal(t, uint64(2), clock.Time())
}

// TestClockMerge checks that merging a received timestamp advances the clock
// past both the received timestamp and the clock's own time.
func TestClockMerge(t *testing.T) {
	clock := NewClock()

	// A received timestamp ahead of the clock moves the clock past it.
	require.Equal(t, uint64(11), clock.Merge(10))

	// A received timestamp behind the clock still advances the clock.
	require.Equal(t, uint64(12), clock.Merge(3))

	require.Equal(t, uint64(12), clock.Time())
}

// TestClockConcurrentTick checks that concurrent ticks never produce
// duplicate timestamps and never skip any.
func TestClockConcurrentTick(t *testing.T) {
	clock := NewClock()

	numWriters := 4
	ticksPerWriter := 250

	times := make(chan uint64, numWriters*ticksPerWriter)
	var wg sync.WaitGroup
	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < ticksPerWriter; j++ {
				times <- clock.Tick()
			}
		}()
	}
	wg.Wait()
	close(times)

	seen := make(map[uint64]bool, numWriters*ticksPerWriter)
	for timestamp := range times {
		require.False(t, seen[timestamp], "timestamp %d was produced twice", timestamp)
		seen[timestamp] = true
	}
	require.Equal(t, uint64(numWriters*ticksPerWriter), clock.Time())
}
