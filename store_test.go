package kv

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStoreWriteLocal checks that local writes are stamped with the node's ID
// and strictly increasing timestamps.
func TestStoreWriteLocal(t *testing.T) {
	store := NewStore("node-1", NewClock())

	first := store.WriteLocal("x", "1")
	require.Equal(t, Record{Value: "1", Timestamp: 1, WriterID: "node-1"}, first)

	second := store.WriteLocal("x", "2")
	require.Equal(t, Record{Value: "2", Timestamp: 2, WriterID: "node-1"}, second)

	record, ok := store.Read("x")
	require.True(t, ok)
	require.Equal(t, second, record)
}

// TestStoreReadMiss checks that reading a key that has never been written
// reports not found.
func TestStoreReadMiss(t *testing.T) {
	store := NewStore("node-1", NewClock())

	_, ok := store.Read("missing")
	require.False(t, ok)
}

// TestStoreMergeRemote checks that received records are installed or
// discarded according to the last-writer-wins comparison.
func TestStoreMergeRemote(t *testing.T) {
	store := NewStore("node-1", NewClock())

	incoming := Record{Value: "a", Timestamp: 5, WriterID: "node-2"}
	require.True(t, store.MergeRemote("x", incoming))

	// A record with a lower timestamp is discarded.
	stale := Record{Value: "b", Timestamp: 3, WriterID: "node-3"}
	require.False(t, store.MergeRemote("x", stale))

	// Redelivering the stored record has no effect.
	require.False(t, store.MergeRemote("x", incoming))

	// A tied timestamp from a greater writer ID replaces the record.
	tied := Record{Value: "c", Timestamp: 5, WriterID: "node-3"}
	require.True(t, store.MergeRemote("x", tied))

	record, ok := store.Read("x")
	require.True(t, ok)
	require.Equal(t, tied, record)
}

// TestStoreMergeAdvancesClock checks that merging a received record moves the
// node's clock past the record's timestamp, so that the node's next local
// write supersedes the record it merged.
func TestStoreMergeAdvancesClock(t *testing.T) {
	clock := NewClock()
	store := NewStore("node-1", clock)

	incoming := Record{Value: "a", Timestamp: 10, WriterID: "node-2"}
	require.True(t, store.MergeRemote("x", incoming))
	require.Equal(t, uint64(11), clock.Time())

	record := store.WriteLocal("x", "b")
	require.Equal(t, uint64(12), record.Timestamp)
	require.True(t, record.Supersedes(incoming))

	stored, ok := store.Read("x")
	require.True(t, ok)
	require.Equal(t, record, stored)
}

// TestStoreMergeOrderIndependence checks that a set of records converges to
// the same winner no matter the order it is delivered in.
func TestStoreMergeOrderIndependence(t *testing.T) {
	records := []Record{
		{Value: "a", Timestamp: 3, WriterID: "node-1"},
		{Value: "b", Timestamp: 3, WriterID: "node-2"},
		{Value: "c", Timestamp: 2, WriterID: "node-3"},
	}
	winner := records[1]

	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		store := NewStore("merge-node", NewClock())
		for _, index := range order {
			store.MergeRemote("x", records[index])
		}

		record, ok := store.Read("x")
		require.True(t, ok, "order = %v", order)
		require.Equal(t, winner, record, "order = %v", order)
	}
}

// TestStoreSnapshot checks that a snapshot is a copy that later writes do
// not modify.
func TestStoreSnapshot(t *testing.T) {
	store := NewStore("node-1", NewClock())
	store.WriteLocal("x", "1")
	store.WriteLocal("y", "2")

	lamportTime, records := store.Snapshot()
	require.Equal(t, uint64(2), lamportTime)
	require.Len(t, records, 2)
	require.Equal(t, "2", records["y"].Value)

	store.WriteLocal("y", "3")
	require.Equal(t, "2", records["y"].Value)
}

// TestStoreLen checks that Len reports the number of distinct keys.
func TestStoreLen(t *testing.T) {
	store := NewStore("node-1", NewClock())
	require.Equal(t, 0, store.Len())

	for i := 0; i < 5; i++ {
		store.WriteLocal(fmt.Sprintf("key-%d", i), "value")
	}
	require.Equal(t, 5, store.Len())

	// Overwriting an existing key does not add a key.
	store.WriteLocal("key-0", "value")
	require.Equal(t, 5, store.Len())
}

// TestStoreConcurrentWrites checks that local writes racing with received
// records each get a distinct timestamp and leave the store with one winner
// per key.
func TestStoreConcurrentWrites(t *testing.T) {
	store := NewStore("node-1", NewClock())

	numWriters := 4
	writesPerWriter := 50

	records := make(chan Record, numWriters*writesPerWriter)
	var wg sync.WaitGroup
	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				records <- store.WriteLocal(fmt.Sprintf("key-%d", writer), "value")
			}
		}(i)
	}
	wg.Wait()
	close(records)

	seen := make(map[uint64]bool, numWriters*writesPerWriter)
	for record := range records {
		require.False(t, seen[record.Timestamp], "timestamp %d was assigned twice", record.Timestamp)
		seen[record.Timestamp] = true
	}
	require.Equal(t, numWriters, store.Len())
}
