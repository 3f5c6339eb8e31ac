package device

import "errors"

var (
	// ErrNoDialer is returned when a Device is configured without a bridge
	// Dialer.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNoPins is returned when a Device is configured without a pin
	// driver.
	ErrNoPins = errors.New("no pin driver configured")

	// ErrLevelUnavailable is returned by Start when the requested level is
	// above the constructed level or below a level started earlier.
	ErrLevelUnavailable = errors.New("functional level unavailable")

	// ErrCapabilityUnavailable is returned by the subsystem accessors when
	// the constructed level does not include the subsystem.
	//
	// It is distinct from a BadRequest result: the request was fine, the
	// device was simply built without the capability.
	ErrCapabilityUnavailable = errors.New("capability unavailable at this functional level")

	// ErrNotStarted is returned by operations that need the pins claimed by
	// Start.
	ErrNotStarted = errors.New("device not started")

	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = errors.New("device destroyed")

	// ErrStatusTimeout is the cause of the fault raised when the status pin
	// does not go high after a power-on pulse.
	ErrStatusTimeout = errors.New("modem status did not go high")

	// ErrNotReady is the cause of the fault raised when the modem firmware
	// never answers AT during the modem stack start.
	ErrNotReady = errors.New("modem did not become ready")
)
