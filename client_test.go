package kv

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/DeresiuPhoi/distributed-lab2/logging"
)

// TestClientFullURLAddress checks that a client accepts a full URL in place
// of a host:port address.
func TestClientFullURLAddress(t *testing.T) {
	defer leaktest.CheckTimeout(t, time.Second)()

	addresses := reserveAddresses(t, 1)
	server, err := NewServer(
		Config{ID: "node-1", ListenAddress: addresses[0]},
		WithLogLevel(logging.Error),
	)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	defer server.Stop()

	client := NewClient("http://" + addresses[0])
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = client.Put(ctx, "key", "value")
	require.NoError(t, err)

	response, err := client.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "value", response.Value)
}

// TestClientUnreachableNode checks that requests to a node that is down are
// reported as errors.
func TestClientUnreachableNode(t *testing.T) {
	defer leaktest.CheckTimeout(t, time.Second)()

	addresses := reserveAddresses(t, 1)
	client := NewClient(addresses[0])
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Put(ctx, "key", "value")
	require.Error(t, err)

	_, err = client.Get(ctx, "key")
	require.Error(t, err)

	_, err = client.Status(ctx)
	require.Error(t, err)
}
