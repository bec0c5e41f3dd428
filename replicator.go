package kv

import (
	"context"
	"sync"
	"time"

	"github.com/DeresiuPhoi/distributed-lab2/logging"
)

// replicator turns local writes into outbound propagation and inbound pushes
// into store merges. Propagation is best effort: every peer is pushed to by
// its own goroutine with a bounded timeout, and a failed or slow peer is
// logged and counted but never retried. One peer's failure never blocks the
// local write or delivery to any other peer. A peer that misses a push stays
// stale until a later overlapping write reaches it.
type replicator struct {
	// The store that local writes and incoming merges are applied to.
	store *Store

	// The transport used to push records to peers.
	transport Transport

	// The addresses of the other nodes in the cluster. Fixed for the
	// lifetime of the node.
	peers []string

	// The maximum time to wait for a single push before abandoning it.
	timeout time.Duration

	// Artificial delay applied before pushing to a peer, by peer address.
	delays map[string]time.Duration

	// The collectors push outcomes are counted in.
	metrics *serverMetrics

	logger *logging.Logger

	// Cancels in-flight pushes when the replicator stops.
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func newReplicator(
	store *Store,
	transport Transport,
	peers []string,
	metrics *serverMetrics,
	logger *logging.Logger,
	options options,
) *replicator {
	ctx, cancel := context.WithCancel(context.Background())
	return &replicator{
		store:     store,
		transport: transport,
		peers:     peers,
		timeout:   options.pushTimeout,
		delays:    options.pushDelays,
		metrics:   metrics,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// write applies a local write to the store and fans the resulting record out
// to every peer. The write is complete once the record is installed locally;
// propagation happens asynchronously and requires no confirmation.
func (r *replicator) write(key string, value string) Record {
	record := r.store.WriteLocal(key, value)
	r.logger.Infof("PUT %s=%s at Lamport time %d", key, record.Value, record.Timestamp)

	request := makeReplicateRequest(key, record)
	for _, peer := range r.peers {
		r.wg.Add(1)
		go func(peer string) {
			defer r.wg.Done()
			r.push(peer, request)
		}(peer)
	}

	return record
}

// receive merges a record pushed by a peer into the store and reports whether
// it was installed. Received records are never forwarded to other peers;
// propagation is a single hop from the original writer.
func (r *replicator) receive(key string, record Record) bool {
	applied := r.store.MergeRemote(key, record)
	if applied {
		r.metrics.applied.Inc()
		r.logger.Infof(
			"REPLICATE %s=%s from %s (ts=%d)",
			key, record.Value, record.WriterID, record.Timestamp,
		)
	} else {
		r.metrics.discarded.Inc()
		r.logger.Infof(
			"REJECTED %s=%s from %s (ts=%d): existing record is newer",
			key, record.Value, record.WriterID, record.Timestamp,
		)
	}
	return applied
}

// push sends one record to one peer. A failed or timed-out push is logged,
// counted, and abandoned.
func (r *replicator) push(peer string, request ReplicateRequest) {
	if delay, ok := r.delays[peer]; ok && delay > 0 {
		r.logger.Infof("delaying push to %s by %s", peer, delay)
		select {
		case <-time.After(delay):
		case <-r.ctx.Done():
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	response, err := r.transport.SendReplicate(ctx, peer, request)
	if err != nil {
		r.metrics.pushFailures.WithLabelValues(peer).Inc()
		r.logger.Warnf("push to %s failed: %s", peer, err.Error())
		return
	}

	r.metrics.pushes.WithLabelValues(peer).Inc()
	r.logger.Debugf("pushed %s to %s: applied=%t", request.Key, peer, response.Applied)
}

// stop cancels in-flight pushes and waits for their goroutines to exit. The
// caller must ensure no further writes are submitted.
func (r *replicator) stop() {
	r.cancel()
	r.wg.Wait()
}
