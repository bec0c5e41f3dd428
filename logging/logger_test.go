package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseLevel checks that level names are parsed case-insensitively
// and that unrecognized names are rejected.
func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, Debug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	require.Equal(t, Warn, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

// TestLoggerLevel checks that messages below the configured level are
// dropped and that messages at or above it are written.
func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(WithWriter(&buf), WithLevel(Warn), WithPrefix("test: "))
	require.NoError(t, err)

	logger.Info("dropped")
	require.Empty(t, buf.String())

	logger.Warnf("written: %d", 1)
	require.Contains(t, buf.String(), "WARN: written: 1")
}
