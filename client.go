package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Client is a client for the HTTP API of a single node. It is safe for
// concurrent use.
type Client struct {
	// The address of the node, as host:port or a full URL.
	address string

	// The underlying HTTP client. Requests are bounded by the caller's
	// context.
	client *http.Client
}

// NewClient creates a client for the node at the provided address.
func NewClient(address string) *Client {
	return &Client{address: address, client: &http.Client{}}
}

// Close releases the connections the client is keeping open. The client
// remains usable afterwards.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// Put writes a value under a key on the node. The node assigns the
// write a Lamport timestamp and pushes it to its peers; the call
// returns as soon as the local write completes.
func (c *Client) Put(ctx context.Context, key string, value string) (PutResponse, error) {
	request := PutRequest{Key: key, Value: value}
	response := PutResponse{}
	if err := postJSON(ctx, c.client, peerURL(c.address)+"/put", request, &response); err != nil {
		return PutResponse{}, fmt.Errorf("could not send put request: %w", err)
	}
	return response, nil
}

// Get reads the current record for a key from the node's local state.
// A key the node has never seen is reported with StatusNotFound in the
// response, not as an error.
func (c *Client) Get(ctx context.Context, key string) (GetResponse, error) {
	query := url.Values{"key": []string{key}}
	target := peerURL(c.address) + "/get?" + query.Encode()
	response := GetResponse{}
	if err := getJSON(ctx, c.client, target, &response); err != nil {
		return GetResponse{}, fmt.Errorf("could not send get request: %w", err)
	}
	return response, nil
}

// Status fetches a diagnostic summary of the node.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	response := StatusResponse{}
	if err := getJSON(ctx, c.client, peerURL(c.address)+"/status", &response); err != nil {
		return StatusResponse{}, fmt.Errorf("could not send status request: %w", err)
	}
	return response, nil
}

// postJSON sends request as a JSON POST body to target and decodes the
// response body into response.
func postJSON(
	ctx context.Context,
	client *http.Client,
	target string,
	request any,
	response any,
) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("could not encode request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	return doJSON(client, httpRequest, response)
}

// getJSON sends a GET request to target and decodes the response body
// into response.
func getJSON(ctx context.Context, client *http.Client, target string, response any) error {
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	return doJSON(client, httpRequest, response)
}

// doJSON performs an HTTP request expecting a JSON response. A non-200
// status is reported as an error carrying the body's error message.
func doJSON(client *http.Client, request *http.Request, response any) error {
	httpResponse, err := client.Do(request)
	if err != nil {
		return err
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		failure := errorResponse{}
		if err := json.NewDecoder(httpResponse.Body).Decode(&failure); err != nil || failure.Error == "" {
			return fmt.Errorf("request failed with status %d", httpResponse.StatusCode)
		}
		return fmt.Errorf("request failed with status %d: %s", httpResponse.StatusCode, failure.Error)
	}

	if err := json.NewDecoder(httpResponse.Body).Decode(response); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	return nil
}
