package at

import "errors"

var (
	// ErrNoDialer is returned when a Client is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the peripheral.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrAlreadyClosed is returned when Close is called on a Client that has
	// already been closed.
	ErrAlreadyClosed = errors.New("client already closed")

	// ErrRunning is returned when Run is called on a Client whose receiver
	// loop is already active. Exactly one receiver may own the stream.
	ErrRunning = errors.New("receiver loop already running")
)
