package pubsub

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolMismatch is a reply the client does not expect for the command it sent
	ErrProtocolMismatch = errors.New("pubsub: unexpected reply")

	// ErrTimeout means a keepalive PING went unanswered for a whole interval
	ErrTimeout = errors.New("pubsub: keepalive timeout")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("pubsub: connection closed")

	// ErrNoChannels is returned by Subscribe and PSubscribe called without names
	ErrNoChannels = errors.New("pubsub: at least one channel or pattern is required")
)

// ServerError is an error reply from the server. The connection stays usable
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string {
	return "pubsub: server error: " + e.Msg
}

// ConnectionError wraps a failure of the underlying stream
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("pubsub: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
