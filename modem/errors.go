package modem

import "errors"

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the module.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when the Dialer hands back no Transport.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Modem that has
	// already been closed.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrPortNameRequired is returned by the serial dialers when no port
	// name is configured.
	ErrPortNameRequired = errors.New("modem: serial port name is required")

	// ErrNilContext is returned by the serial dialers when called with a nil
	// context.
	ErrNilContext = errors.New("modem: context is nil")
)
