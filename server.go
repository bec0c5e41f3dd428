package kv

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/DeresiuPhoi/distributed-lab2/internal/errors"
	"github.com/DeresiuPhoi/distributed-lab2/logging"
)

// errNotRunning is reported for operations that require a started server.
var errNotRunning = errors.New("server is not running")

// Status is a point-in-time diagnostic summary of a server.
type Status struct {
	// The ID of the server.
	ID string

	// The current value of the server's Lamport clock.
	LamportTime uint64

	// The current records, by key.
	Records map[string]Record

	// The peer addresses the server pushes writes to.
	Peers []string
}

// Server is a node in the cluster. It composes the clock, the store, and the
// replicator behind a transport, and contains no logic of its own beyond
// dispatch and response encoding. All of a server's state is owned by the
// server instance, so any number of servers can run in one process.
type Server struct {
	// The unique ID of this node.
	id string

	// The addresses of the other nodes in the cluster.
	peers []string

	// The store holding the node's records and clock.
	store *Store

	// Propagates local writes to peers and merges received pushes.
	// Replaced on every start so that a stopped server can be started
	// again.
	replicator *replicator

	// The transport serving the node API.
	transport Transport

	// The node's metric collectors.
	metrics *serverMetrics

	logger *logging.Logger

	// The options the server was created with.
	options options

	// Indicates whether the server is accepting writes.
	running bool

	mu sync.RWMutex
}

// NewServer creates a new server with the provided configuration. The
// configuration is fixed for the lifetime of the server.
func NewServer(config Config, opts ...Option) (*Server, error) {
	var options options
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, errors.WrapError(err, "failed to create server: %s", err.Error())
		}
	}
	if options.pushTimeout == 0 {
		options.pushTimeout = defaultPushTimeout
	}

	if err := config.validate(); err != nil {
		return nil, errors.WrapError(err, "failed to create server: %s", err.Error())
	}
	if config.ID == "" {
		config.ID = uuid.NewString()
	}

	logger := options.logger
	if logger == nil {
		level := logging.Info
		if options.levelSet {
			level = options.logLevel
		}
		var err error
		logger, err = logging.NewLogger(
			logging.WithLevel(level),
			logging.WithPrefix(fmt.Sprintf("[%s] ", config.ID)),
		)
		if err != nil {
			return nil, errors.WrapError(err, "failed to create server: %s", err.Error())
		}
	}

	transport := options.transport
	if transport == nil {
		var err error
		transport, err = NewTransport(config.ListenAddress)
		if err != nil {
			return nil, errors.WrapError(err, "failed to create server: %s", err.Error())
		}
	}

	store := NewStore(config.ID, NewClock())

	server := &Server{
		id:        config.ID,
		peers:     config.Peers,
		store:     store,
		transport: transport,
		metrics:   newServerMetrics(config.ID, store),
		logger:    logger,
		options:   options,
	}

	transport.RegisterPutHandler(server.put)
	transport.RegisterGetHandler(server.get)
	transport.RegisterStatusHandler(server.status)
	transport.RegisterReplicateHandler(server.replicate)
	transport.RegisterMetricsHandler(server.metrics.handler())

	return server, nil
}

// Start begins serving the node API and accepting writes.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.replicator = newReplicator(s.store, s.transport, s.peers, s.metrics, s.logger, s.options)
	if err := s.transport.Run(); err != nil {
		return errors.WrapError(err, "failed to start server: %s", err.Error())
	}
	s.running = true
	s.logger.Infof("node started listening on %s, peers: %v", s.transport.Address(), s.peers)

	return nil
}

// Stop stops serving the node API. In-flight pushes to peers are abandoned.
// The store and the clock retain their state, so a stopped server can be
// started again.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	replicator := s.replicator
	s.mu.Unlock()

	if err := s.transport.Shutdown(); err != nil {
		s.logger.Errorf("failed to shut down transport: %s", err.Error())
	}
	replicator.stop()
	s.logger.Info("node stopped")
}

// Put performs a local write of value under key and returns the stamped
// record. The write completes based on local state only. Propagation to
// peers is asynchronous and best effort; an unreachable peer never fails
// the write.
func (s *Server) Put(key string, value string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return Record{}, errNotRunning
	}
	return s.replicator.write(key, value), nil
}

// Get reads the current record for key from the server's local state. The
// second return value reports whether the key has ever been written on
// this node.
func (s *Server) Get(key string) (Record, bool) {
	return s.store.Read(key)
}

// Status returns a point-in-time summary of the server.
func (s *Server) Status() Status {
	clock, records := s.store.Snapshot()
	return Status{
		ID:          s.id,
		LamportTime: clock,
		Records:     records,
		Peers:       s.peers,
	}
}

// Address returns the address the server's transport is listening on.
func (s *Server) Address() string {
	return s.transport.Address()
}

// put handles a put request received by the transport.
func (s *Server) put(request *PutRequest, response *PutResponse) error {
	record, err := s.Put(request.Key, request.Value)
	if err != nil {
		return err
	}
	*response = PutResponse{
		Status:    StatusOK,
		Timestamp: record.Timestamp,
		Node:      record.WriterID,
	}
	return nil
}

// get handles a get request received by the transport.
func (s *Server) get(request *GetRequest, response *GetResponse) error {
	record, found := s.store.Read(request.Key)
	*response = makeGetResponse(request.Key, record, found)
	return nil
}

// status handles a status request received by the transport.
func (s *Server) status(request *StatusRequest, response *StatusResponse) error {
	status := s.Status()
	*response = StatusResponse{
		NodeID:      status.ID,
		LamportTime: status.LamportTime,
		KeyCount:    len(status.Records),
		Store:       makeStoreEntries(status.Records),
		Peers:       status.Peers,
	}
	return nil
}

// replicate handles a record pushed by a peer.
func (s *Server) replicate(request *ReplicateRequest, response *ReplicateResponse) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return errNotRunning
	}
	applied := s.replicator.receive(request.Key, makeRecord(*request))
	*response = ReplicateResponse{Status: StatusOK, Applied: applied}
	return nil
}
