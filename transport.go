package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const (
	// The time a shutdown waits for in-flight requests before closing
	// connections.
	shutdownGracePeriod = 300 * time.Millisecond

	// The maximum size of a request body in bytes.
	maxBodyBytes = 1 << 20
)

// Transport represents the underlying transport mechanism used by a node in a
// cluster to serve its API and to push replicated writes to its peers. It acts
// as both a server for a node and a client of other nodes.
type Transport interface {
	// Run will start serving incoming requests received at the local network
	// address.
	Run() error

	// Shutdown will stop the serving of incoming requests.
	Shutdown() error

	// SendReplicate pushes a replicated write to the node at the provided
	// address. The provided context bounds how long the push may take.
	SendReplicate(
		ctx context.Context,
		address string,
		request ReplicateRequest,
	) (ReplicateResponse, error)

	// RegisterPutHandler registers the function that will be called when a
	// put request is received.
	RegisterPutHandler(handler func(*PutRequest, *PutResponse) error)

	// RegisterGetHandler registers the function that will be called when a
	// get request is received.
	RegisterGetHandler(handler func(*GetRequest, *GetResponse) error)

	// RegisterStatusHandler registers the function that will be called when a
	// status request is received.
	RegisterStatusHandler(handler func(*StatusRequest, *StatusResponse) error)

	// RegisterReplicateHandler registers the function that will be called when
	// a replicated write is received from a peer.
	RegisterReplicateHandler(handler func(*ReplicateRequest, *ReplicateResponse) error)

	// RegisterMetricsHandler registers the handler that serves the node's
	// metrics. The metrics surface is HTTP regardless of how the rest of the
	// transport is implemented.
	RegisterMetricsHandler(handler http.Handler)

	// Address returns the local network address.
	Address() string
}

// transport is an HTTP implementation of the Transport interface. Request and
// response payloads are JSON encoded.
type transport struct {
	// Indicates whether the transport is started.
	running bool

	// The local network address.
	address net.Addr

	// The listener accepting incoming requests.
	listener net.Listener

	// The HTTP server for the node API.
	server *http.Server

	// The client used to push replicated writes to peers. Pushes are bounded
	// by the caller's context rather than a client-wide timeout.
	client *http.Client

	// The function that is called when a put request is received.
	putHandler func(*PutRequest, *PutResponse) error

	// The function that is called when a get request is received.
	getHandler func(*GetRequest, *GetResponse) error

	// The function that is called when a status request is received.
	statusHandler func(*StatusRequest, *StatusResponse) error

	// The function that is called when a replicated write is received.
	replicateHandler func(*ReplicateRequest, *ReplicateResponse) error

	// The handler serving the node's metrics.
	metricsHandler http.Handler

	mu sync.RWMutex
}

// NewTransport creates a new Transport instance that serves the node API at
// the provided address over HTTP with JSON payloads.
func NewTransport(address string) (Transport, error) {
	resolvedAddress, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("could not resolve tcp address: %w", err)
	}
	return &transport{address: resolvedAddress, client: &http.Client{}}, nil
}

func (t *transport) Run() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	listener, err := net.Listen(t.address.Network(), t.address.String())
	if err != nil {
		return fmt.Errorf("could not create listener: %w", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/put", t.handlePut).Methods(http.MethodPost)
	router.HandleFunc("/get", t.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/status", t.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/replicate", t.handleReplicate).Methods(http.MethodPost)
	if t.metricsHandler != nil {
		router.Handle("/metrics", t.metricsHandler).Methods(http.MethodGet)
	}
	router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	// Keep the resolved address so that a transport listening on an
	// ephemeral port can be stopped and started again on the same port.
	t.address = listener.Addr()
	t.listener = listener
	t.server = &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  time.Minute,
	}
	go t.server.Serve(listener)
	t.running = true

	return nil
}

func (t *transport) Shutdown() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	server := t.server
	t.mu.Unlock()

	t.client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return server.Close()
	}

	return nil
}

func (t *transport) SendReplicate(
	ctx context.Context,
	address string,
	request ReplicateRequest,
) (ReplicateResponse, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.running {
		return ReplicateResponse{}, errors.New(
			"could not send replicate request: transport is closed",
		)
	}

	response := ReplicateResponse{}
	url := peerURL(address) + "/replicate"
	if err := postJSON(ctx, t.client, url, request, &response); err != nil {
		return ReplicateResponse{}, fmt.Errorf("could not send replicate request: %w", err)
	}

	return response, nil
}

func (t *transport) RegisterPutHandler(handler func(*PutRequest, *PutResponse) error) {
	t.putHandler = handler
}

func (t *transport) RegisterGetHandler(handler func(*GetRequest, *GetResponse) error) {
	t.getHandler = handler
}

func (t *transport) RegisterStatusHandler(handler func(*StatusRequest, *StatusResponse) error) {
	t.statusHandler = handler
}

func (t *transport) RegisterReplicateHandler(
	handler func(*ReplicateRequest, *ReplicateResponse) error,
) {
	t.replicateHandler = handler
}

func (t *transport) RegisterMetricsHandler(handler http.Handler) {
	t.metricsHandler = handler
}

func (t *transport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.address.String()
}

// handlePut handles an HTTP put request. It decodes and validates the
// request, invokes the registered handler, and writes the response.
func (t *transport) handlePut(w http.ResponseWriter, r *http.Request) {
	request := &PutRequest{}
	if err := decodeJSON(w, r, request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := &PutResponse{}
	if err := t.putHandler(request, response); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGet handles an HTTP get request. The key is carried in the
// query string.
func (t *transport) handleGet(w http.ResponseWriter, r *http.Request) {
	request := &GetRequest{Key: r.URL.Query().Get("key")}
	if err := request.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := &GetResponse{}
	if err := t.getHandler(request, response); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// handleStatus handles an HTTP status request.
func (t *transport) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := &StatusResponse{}
	if err := t.statusHandler(&StatusRequest{}, response); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// handleReplicate handles a replicated write pushed by a peer. A request with
// missing fields is refused here, before it can reach the clock or the store.
func (t *transport) handleReplicate(w http.ResponseWriter, r *http.Request) {
	request := &ReplicateRequest{}
	if err := decodeJSON(w, r, request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := &ReplicateResponse{}
	if err := t.replicateHandler(request, response); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// errorResponse is the body of a refused request.
type errorResponse struct {
	Error string `json:"error"`
}

// decodeJSON decodes the JSON body of a request into v. The body is capped at
// maxBodyBytes. Unknown fields are tolerated.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %v", err)
	}
	return nil
}

// writeJSON writes v as the JSON body of a response.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the provided status code.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

// peerURL converts a configured peer address into a base URL. Addresses may be
// given as host:port or as a full URL.
func peerURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return address
	}
	return "http://" + address
}
