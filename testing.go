package kv

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DeresiuPhoi/distributed-lab2/internal/numeric"
	"github.com/DeresiuPhoi/distributed-lab2/internal/random"
	"github.com/DeresiuPhoi/distributed-lab2/logging"
	"github.com/stretchr/testify/require"
)

// reserveAddresses reserves n distinct loopback addresses with free ports.
// The listeners are closed before returning so that the ports can be bound
// again by the servers under test.
func reserveAddresses(t *testing.T, n int) []string {
	addresses := make([]string, n)
	for i := 0; i < n; i++ {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addresses[i] = listener.Addr().String()
		require.NoError(t, listener.Close())
	}
	return addresses
}

// transportMock is an in-memory Transport for tests. It records the pushes
// sent through it and can simulate unreachable or slow peers.
type transportMock struct {
	// The pushes delivered so far, by peer address.
	requests map[string][]ReplicateRequest

	// The peers that refuse pushes, by peer address.
	unreachable map[string]bool

	// Artificial time taken to deliver a push.
	latency time.Duration

	// Indicates whether the transport is started.
	running bool

	mu sync.Mutex
}

func newTransportMock() *transportMock {
	return &transportMock{
		requests:    make(map[string][]ReplicateRequest),
		unreachable: make(map[string]bool),
	}
}

func (t *transportMock) Run() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	return nil
}

func (t *transportMock) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	return nil
}

func (t *transportMock) SendReplicate(
	ctx context.Context,
	address string,
	request ReplicateRequest,
) (ReplicateResponse, error) {
	t.mu.Lock()
	latency := t.latency
	t.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ReplicateResponse{}, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unreachable[address] {
		return ReplicateResponse{}, fmt.Errorf("peer %s is unreachable", address)
	}
	t.requests[address] = append(t.requests[address], request)

	return ReplicateResponse{Status: StatusOK, Applied: true}, nil
}

func (t *transportMock) RegisterPutHandler(handler func(*PutRequest, *PutResponse) error) {}

func (t *transportMock) RegisterGetHandler(handler func(*GetRequest, *GetResponse) error) {}

func (t *transportMock) RegisterStatusHandler(handler func(*StatusRequest, *StatusResponse) error) {
}

func (t *transportMock) RegisterReplicateHandler(
	handler func(*ReplicateRequest, *ReplicateResponse) error,
) {
}

func (t *transportMock) RegisterMetricsHandler(handler http.Handler) {}

func (t *transportMock) Address() string {
	return "127.0.0.1:0"
}

// setUnreachable marks a peer as refusing pushes.
func (t *transportMock) setUnreachable(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unreachable[address] = true
}

// setLatency sets the artificial time taken to deliver a push.
func (t *transportMock) setLatency(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latency = latency
}

// sent returns a copy of the pushes delivered to the provided peer.
func (t *transportMock) sent(address string) []ReplicateRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	requests := make([]ReplicateRequest, len(t.requests[address]))
	copy(requests, t.requests[address])
	return requests
}

// newTestReplicator wires a replicator to a fresh store for direct tests.
func newTestReplicator(
	t *testing.T,
	transport Transport,
	peers []string,
	opts options,
) (*replicator, *Store, *serverMetrics) {
	logger, err := logging.NewLogger(logging.WithLevel(logging.Error))
	require.NoError(t, err)

	if opts.pushTimeout == 0 {
		opts.pushTimeout = defaultPushTimeout
	}

	store := NewStore("test-node", NewClock())
	metrics := newServerMetrics("test-node", store)
	return newReplicator(store, transport, peers, metrics, logger, opts), store, metrics
}

// testCluster is a fully connected cluster of nodes running in one process,
// each serving the node API on its own loopback address.
type testCluster struct {
	// The testing instance associated with the cluster.
	t *testing.T

	// The servers making up the cluster.
	servers []*Server

	// The listen addresses, where addresses[i] is the address of servers[i].
	addresses []string

	// The clients for each server, where clients[i] talks to servers[i].
	clients []*Client
}

// newCluster creates a cluster of numServers servers with every node peered
// to every other node. A non-zero pushDelay delays every push from every
// server to every peer, which widens the window in which concurrent writes
// race. The provided options are applied to every server.
func newCluster(t *testing.T, numServers int, pushDelay time.Duration, opts ...Option) *testCluster {
	addresses := reserveAddresses(t, numServers)
	servers := make([]*Server, numServers)
	clients := make([]*Client, numServers)

	for i := 0; i < numServers; i++ {
		peers := make([]string, 0, numServers-1)
		serverOpts := append([]Option{WithLogLevel(logging.Error)}, opts...)
		for j, address := range addresses {
			if j == i {
				continue
			}
			peers = append(peers, address)
			if pushDelay > 0 {
				serverOpts = append(serverOpts, WithPushDelay(address, pushDelay))
			}
		}

		config := Config{
			ID:            fmt.Sprintf("node-%d", i),
			ListenAddress: addresses[i],
			Peers:         peers,
		}
		server, err := NewServer(config, serverOpts...)
		if err != nil {
			t.Fatalf("failed to create cluster server: server = %d, err = %s", i, err.Error())
		}
		servers[i] = server
		clients[i] = NewClient(addresses[i])
	}

	return &testCluster{t: t, servers: servers, addresses: addresses, clients: clients}
}

func (tc *testCluster) startCluster() {
	for i, server := range tc.servers {
		if err := server.Start(); err != nil {
			tc.t.Fatalf("failed to start cluster server: server = %d, err = %s", i, err.Error())
		}
	}
}

func (tc *testCluster) stopCluster() {
	for _, server := range tc.servers {
		server.Stop()
	}
	for _, client := range tc.clients {
		client.Close()
	}
}

func (tc *testCluster) startServer(index int) {
	if err := tc.servers[index].Start(); err != nil {
		tc.t.Fatalf("failed to start cluster server: server = %d, err = %s", index, err.Error())
	}
}

func (tc *testCluster) stopServer(index int) {
	tc.servers[index].Stop()
}

// put writes a value through the HTTP API of the server at index.
func (tc *testCluster) put(index int, key string, value string) PutResponse {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	response, err := tc.clients[index].Put(ctx, key, value)
	if err != nil {
		tc.t.Fatalf("failed to put: server = %d, key = %s, err = %s", index, key, err.Error())
	}
	return response
}

// get reads a key through the HTTP API of the server at index.
func (tc *testCluster) get(index int, key string) GetResponse {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	response, err := tc.clients[index].Get(ctx, key)
	if err != nil {
		tc.t.Fatalf("failed to get: server = %d, key = %s, err = %s", index, key, err.Error())
	}
	return response
}

// status fetches the status of the server at index through the HTTP API.
func (tc *testCluster) status(index int) StatusResponse {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	response, err := tc.clients[index].Status(ctx)
	if err != nil {
		tc.t.Fatalf("failed to fetch status: server = %d, err = %s", index, err.Error())
	}
	return response
}

// interleavedWrites issues count writes for key, each from a randomly chosen
// server, pausing a few random milliseconds between writes. It returns the
// written values.
func (tc *testCluster) interleavedWrites(key string, count int) []string {
	values := make([]string, count)
	for i := 0; i < count; i++ {
		values[i] = fmt.Sprintf("value-%d", i)
		tc.put(random.RandomInt(0, len(tc.servers)), key, values[i])
		time.Sleep(random.RandomTimeout(time.Millisecond, 5*time.Millisecond))
	}
	return values
}

// waitForValue polls the server at index until its local record for key holds
// the provided value or the timeout elapses.
func (tc *testCluster) waitForValue(index int, key string, value string, timeout time.Duration) {
	interval := 5 * time.Millisecond
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if record, ok := tc.servers[index].Get(key); ok && record.Value == value {
			return
		}
		time.Sleep(interval)
		interval = numeric.Min(2*interval, 100*time.Millisecond)
	}
	tc.t.Fatalf("server did not converge: server = %d, key = %s, value = %s", index, key, value)
}

// waitForConvergence waits until the servers at the provided indices all hold
// the same record for key, then returns that record.
func (tc *testCluster) waitForConvergence(key string, indices []int, timeout time.Duration) Record {
	interval := 5 * time.Millisecond
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		records := make([]Record, 0, len(indices))
		for _, index := range indices {
			record, ok := tc.servers[index].Get(key)
			if !ok {
				break
			}
			records = append(records, record)
		}

		converged := len(records) == len(indices)
		for _, record := range records {
			if record != records[0] {
				converged = false
				break
			}
		}
		if converged {
			return records[0]
		}

		time.Sleep(interval)
		interval = numeric.Min(2*interval, 100*time.Millisecond)
	}

	tc.t.Fatalf("cluster did not converge: key = %s, servers = %v", key, indices)
	return Record{}
}
