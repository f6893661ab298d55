package network

import "errors"

var (
	// ErrOperationFailed is returned when an operation is attempted
	// against an object whose state cannot accept it, such as starting a
	// session that is already running, or pending a channel under a nonce
	// that is already pending.
	ErrOperationFailed = errors.New("operation failed")

	// ErrServiceStopped is returned for any operation issued after the
	// owning service has observed the stop signal.
	ErrServiceStopped = errors.New("service stopped")

	// ErrAcceptFailed is returned when an otherwise healthy channel is
	// refused admission, either because it was detected as a loopback
	// connection or because the peer's advertised protocol version is
	// below the configured floor.
	ErrAcceptFailed = errors.New("accept failed")

	// ErrNotFound is returned when a lookup misses, such as loading a
	// message of an unknown kind or removing a channel that is not
	// pending.
	ErrNotFound = errors.New("not found")
)
