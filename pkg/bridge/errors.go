package bridge

import "errors"

// Sentinel errors for server and connection lifecycle conditions.
var (
	// ErrServerClosed is returned from Start or write paths after Close.
	ErrServerClosed = errors.New("bridge: server closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("bridge: server already started")

	// ErrConnClosed is returned when writing to a connection that has been
	// torn down.
	ErrConnClosed = errors.New("bridge: connection closed")
)
