package kv

import (
	"testing"
	"time"

	"github.com/DeresiuPhoi/distributed-lab2/logging"
	"github.com/stretchr/testify/require"
)

// TestWithPushTimeout checks that the push timeout option only accepts
// positive durations.
func TestWithPushTimeout(t *testing.T) {
	options := &options{}

	// Test zero input
	require.Error(t, WithPushTimeout(0)(options))

	// Test negative input
	require.Error(t, WithPushTimeout(-time.Second)(options))

	// Test valid input
	require.NoError(t, WithPushTimeout(time.Second)(options))
	require.Equal(t, time.Second, options.pushTimeout)
}

// TestWithLogLevel checks that the log level option records the level.
func TestWithLogLevel(t *testing.T) {
	options := &options{}

	require.NoError(t, WithLogLevel(logging.Warn)(options))
	require.Equal(t, logging.Warn, options.logLevel)
	require.True(t, options.levelSet)
}

// TestWithLogger checks that the logger option only accepts non-nil loggers.
func TestWithLogger(t *testing.T) {
	options := &options{}

	// Test nil input
	require.Error(t, WithLogger(nil)(options))

	// Test valid input
	testLogger, err := logging.NewLogger()
	require.NoError(t, err)
	require.NoError(t, WithLogger(testLogger)(options))
}

// TestWithTransport checks that the transport option only accepts non-nil
// transports.
func TestWithTransport(t *testing.T) {
	options := &options{}

	// Test nil input
	require.Error(t, WithTransport(nil)(options))

	// Test valid input
	require.NoError(t, WithTransport(newTransportMock())(options))
}

// TestWithPushDelay checks that the push delay option only accepts named
// peers and non-negative delays.
func TestWithPushDelay(t *testing.T) {
	options := &options{}

	// Test empty peer
	require.Error(t, WithPushDelay("", time.Second)(options))

	// Test negative delay
	require.Error(t, WithPushDelay("127.0.0.1:8001", -time.Second)(options))

	// Test valid input
	require.NoError(t, WithPushDelay("127.0.0.1:8001", time.Second)(options))
	require.NoError(t, WithPushDelay("127.0.0.1:8002", 2*time.Second)(options))
	require.Equal(t, time.Second, options.pushDelays["127.0.0.1:8001"])
	require.Equal(t, 2*time.Second, options.pushDelays["127.0.0.1:8002"])
}
