package kv

import (
	"errors"
	"time"

	"github.com/DeresiuPhoi/distributed-lab2/logging"
)

const defaultPushTimeout = time.Duration(5 * time.Second)

type options struct {
	// The maximum time to wait for a push to a single peer before it
	// is abandoned. A push that exceeds this timeout is logged and
	// counted, never retried.
	pushTimeout time.Duration

	// The level of logged messages.
	logLevel logging.Level

	// Indicates if log level was set or not.
	levelSet bool

	// A provided logger that can be used by the server.
	logger *logging.Logger

	// A provided network transport that can be used by the server.
	transport Transport

	// Artificial delays applied before pushing to specific peers,
	// keyed by peer address. Intended for demonstrating replication
	// races; has no effect on correctness.
	pushDelays map[string]time.Duration
}

// Option is a function that updates the options associated with a server.
type Option func(options *options) error

// WithPushTimeout sets the time a push to a single peer may take
// before it is abandoned.
func WithPushTimeout(timeout time.Duration) Option {
	return func(options *options) error {
		if timeout <= 0 {
			return errors.New("push timeout must be positive")
		}
		options.pushTimeout = timeout
		return nil
	}
}

// WithLogLevel sets the log level used by the server.
func WithLogLevel(level logging.Level) Option {
	return func(options *options) error {
		options.logLevel = level
		options.levelSet = true
		return nil
	}
}

// WithLogger sets the logger that will be used by the server. This is
// useful if you wish to direct or format log output yourself.
func WithLogger(logger *logging.Logger) Option {
	return func(options *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		options.logger = logger
		return nil
	}
}

// WithTransport sets the network transport that will be used by the
// server. This is useful if you wish to use your own implementation
// of a transport.
func WithTransport(transport Transport) Option {
	return func(options *options) error {
		if transport == nil {
			return errors.New("transport must not be nil")
		}
		options.transport = transport
		return nil
	}
}

// WithPushDelay delays every push to the peer at the provided address
// by the provided duration. Delayed pushes still respect the push
// timeout once the delay has elapsed.
func WithPushDelay(peer string, delay time.Duration) Option {
	return func(options *options) error {
		if peer == "" {
			return errors.New("peer must not be empty")
		}
		if delay < 0 {
			return errors.New("delay must not be negative")
		}
		if options.pushDelays == nil {
			options.pushDelays = make(map[string]time.Duration)
		}
		options.pushDelays[peer] = delay
		return nil
	}
}
