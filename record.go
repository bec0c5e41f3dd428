package kv

// Record is a value together with the metadata describing the write
// that produced it. A record is immutable once created. A newer write
// installs a new record in its place; nothing ever modifies one.
type Record struct {
	// The value that was written.
	Value string

	// The Lamport time at which the write occurred.
	Timestamp uint64

	// The ID of the node where the write originated.
	WriterID string
}

// Supersedes indicates whether this record beats other under the
// last-writer-wins total order. A greater timestamp always wins. Equal
// timestamps are broken by the lexicographically greater writer ID so
// that every node settles on the same winner no matter the order in
// which the records arrive. Wall-clock time plays no part.
func (r Record) Supersedes(other Record) bool {
	if r.Timestamp != other.Timestamp {
		return r.Timestamp > other.Timestamp
	}
	return r.WriterID > other.WriterID
}
