package kv

import "errors"

// Wire status values reported in responses.
const (
	// StatusOK indicates that the operation completed.
	StatusOK = "ok"

	// StatusNotFound indicates that the requested key has never been
	// written on the answering node. It is reported in the response
	// payload, not as a transport error.
	StatusNotFound = "not_found"
)

// PutRequest is a request to write a value on the receiving node.
type PutRequest struct {
	// The key to write. Required.
	Key string `json:"key"`

	// The value to write. May be empty.
	Value string `json:"value"`
}

// PutResponse is a response to a local write.
type PutResponse struct {
	// Always StatusOK. A write never fails due to peer availability.
	Status string `json:"status"`

	// The Lamport time assigned to the write.
	Timestamp uint64 `json:"timestamp"`

	// The ID of the node that performed the write.
	Node string `json:"node"`
}

// GetRequest is a request to read the current record for a key from
// the receiving node's local state.
type GetRequest struct {
	// The key to read. Required.
	Key string `json:"key"`
}

// GetResponse is a response to a read. If the key has never been
// written on the answering node, Status is StatusNotFound, Value is
// empty, and the remaining fields are omitted.
type GetResponse struct {
	// StatusOK or StatusNotFound.
	Status string `json:"status"`

	// The key that was read.
	Key string `json:"key"`

	// The current value for the key. May be the empty string for a
	// found key, so it is always present on the wire.
	Value string `json:"value"`

	// The Lamport time of the write that produced the value.
	Timestamp uint64 `json:"timestamp,omitempty"`

	// The ID of the node where the winning write originated.
	Node string `json:"node,omitempty"`
}

// ReplicateRequest is a push of a locally written record from the
// writing node to a peer.
type ReplicateRequest struct {
	// The key that was written. Required.
	Key string `json:"key"`

	// The value that was written. May be empty.
	Value string `json:"value"`

	// The Lamport time of the write. Required and never zero.
	Timestamp uint64 `json:"timestamp"`

	// The ID of the node where the write originated. Required.
	SourceNode string `json:"source_node"`
}

// ReplicateResponse is an acknowledgment of a replicated push.
type ReplicateResponse struct {
	// Always StatusOK. A push that loses the last-writer-wins
	// comparison is still acknowledged.
	Status string `json:"status"`

	// Indicates whether the pushed record was installed. False means
	// the record lost the last-writer-wins comparison and was
	// discarded.
	Applied bool `json:"applied"`
}

// StatusRequest is a request for a diagnostic summary of a node.
type StatusRequest struct{}

// StatusResponse is a diagnostic summary of a node. The format is not
// stable across versions.
type StatusResponse struct {
	// The ID of the answering node.
	NodeID string `json:"node_id"`

	// The current value of the node's Lamport clock.
	LamportTime uint64 `json:"lamport_time"`

	// The number of keys in the node's store.
	KeyCount int `json:"key_count"`

	// The full contents of the node's store.
	Store map[string]StoreEntry `json:"store"`

	// The peer addresses the node pushes writes to.
	Peers []string `json:"peers"`
}

// StoreEntry is the wire representation of a stored record as it
// appears in a status response.
type StoreEntry struct {
	// The stored value.
	Value string `json:"value"`

	// The Lamport time of the write that produced the value.
	Timestamp uint64 `json:"timestamp"`

	// The ID of the node where the write originated.
	Node string `json:"node"`
}

// validate rejects put requests with missing fields.
func (r *PutRequest) validate() error {
	if r.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

// validate rejects get requests with missing fields.
func (r *GetRequest) validate() error {
	if r.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

// validate rejects replicate requests with missing fields. A push
// that fails validation is refused before it reaches the clock or the
// store.
func (r *ReplicateRequest) validate() error {
	if r.Key == "" {
		return errors.New("key is required")
	}
	if r.Timestamp == 0 {
		return errors.New("timestamp is required")
	}
	if r.SourceNode == "" {
		return errors.New("source_node is required")
	}
	return nil
}

// makeReplicateRequest converts a locally written record into the
// wire representation pushed to peers.
func makeReplicateRequest(key string, record Record) ReplicateRequest {
	return ReplicateRequest{
		Key:        key,
		Value:      record.Value,
		Timestamp:  record.Timestamp,
		SourceNode: record.WriterID,
	}
}

// makeRecord converts a replicate request received from a peer into a
// record for merging.
func makeRecord(request ReplicateRequest) Record {
	return Record{
		Value:     request.Value,
		Timestamp: request.Timestamp,
		WriterID:  request.SourceNode,
	}
}

// makeGetResponse converts the result of a store read into the wire
// representation.
func makeGetResponse(key string, record Record, found bool) GetResponse {
	if !found {
		return GetResponse{Status: StatusNotFound, Key: key}
	}
	return GetResponse{
		Status:    StatusOK,
		Key:       key,
		Value:     record.Value,
		Timestamp: record.Timestamp,
		Node:      record.WriterID,
	}
}

// makeStoreEntries converts a store snapshot into the wire
// representation carried by a status response.
func makeStoreEntries(records map[string]Record) map[string]StoreEntry {
	entries := make(map[string]StoreEntry, len(records))
	for key, record := range records {
		entries[key] = StoreEntry{
			Value:     record.Value,
			Timestamp: record.Timestamp,
			Node:      record.WriterID,
		}
	}
	return entries
}
