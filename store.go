package kv

import "sync"

// Store is an in-memory mapping from keys to records shared by the
// local write path and the replication path of a node. The store owns
// the node's clock: every mutation advances the clock and updates the
// map under a single critical section, so concurrent local writes and
// incoming replicated writes are linearized with respect to one
// another.
//
// The store holds the record with the greatest (timestamp, writer ID)
// pair among all records it has observed for each key.
type Store struct {
	// The ID of the node this store belongs to. Stamped onto records
	// created by local writes.
	id string

	// The Lamport clock of the node.
	clock *Clock

	// The current winning record for each key.
	records map[string]Record

	mu sync.RWMutex
}

// NewStore creates an empty store that stamps local writes with the
// provided node ID and advances the provided clock.
func NewStore(id string, clock *Clock) *Store {
	return &Store{
		id:      id,
		clock:   clock,
		records: make(map[string]Record),
	}
}

// WriteLocal performs a local write of value under key. The clock is
// ticked and the resulting record installed unconditionally: because
// the tick and the install happen in one critical section, a local
// write is always the newest event this node knows about and always
// wins locally. The installed record is returned for propagation to
// peers.
func (s *Store) WriteLocal(key string, value string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := Record{Value: value, Timestamp: s.clock.Tick(), WriterID: s.id}
	s.records[key] = record

	return record
}

// MergeRemote merges a record received from a peer into the store and
// reports whether it was installed. The clock is first advanced past
// the record's timestamp. The record is then installed if the key has
// never been written on this node or if it supersedes the current
// record, and discarded otherwise. A record with a lower timestamp
// than one already applied is always discarded; there is no undo.
//
// The merge is commutative and idempotent: delivering the same set of
// records in any order, with any duplication, leaves the store with
// the same winner for every key.
func (s *Store) MergeRemote(key string, incoming Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock.Merge(incoming.Timestamp)

	current, ok := s.records[key]
	if ok && !incoming.Supersedes(current) {
		return false
	}
	s.records[key] = incoming

	return true
}

// Read returns the current record for key. The second return value
// reports whether the key has ever been written on this node. A key
// present on other nodes appears absent here until a replicated write
// for it arrives; that staleness window is expected.
func (s *Store) Read(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	return record, ok
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Snapshot returns the current clock value and a copy of the stored
// records. It has no side effect on the clock or the store.
func (s *Store) Snapshot() (uint64, map[string]Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[string]Record, len(s.records))
	for key, record := range s.records {
		records[key] = record
	}

	return s.clock.Time(), records
}
