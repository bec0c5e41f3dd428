package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRecordSupersedes checks that records are ordered by timestamp first and
// by writer ID on ties.
func TestRecordSupersedes(t *testing.T) {
	older := Record{Value: "a", Timestamp: 1, WriterID: "node-2"}
	newer := Record{Value: "b", Timestamp: 2, WriterID: "node-1"}

	// A greater timestamp wins regardless of the writer IDs.
	require.True(t, newer.Supersedes(older))
	require.False(t, older.Supersedes(newer))

	// Equal timestamps fall back to the lexicographically greater writer ID.
	tied := Record{Value: "c", Timestamp: 2, WriterID: "node-3"}
	require.True(t, tied.Supersedes(newer))
	require.False(t, newer.Supersedes(tied))

	// A record never supersedes an identical record.
	require.False(t, newer.Supersedes(newer))
}
