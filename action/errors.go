package action

import "errors"

var (
	// ErrBadRequest is returned when a request fails local validation.
	//
	// The transport is never touched for a bad request. The caller may retry
	// with corrected input.
	ErrBadRequest = errors.New("bad request")

	// ErrTimeout is returned when a command was written to the modem but no
	// final response arrived within the timeout budget.
	//
	// The modem state is unknown after a timeout: the command may or may not
	// have been applied.
	ErrTimeout = errors.New("action timeout")

	// ErrProtocol is returned when the modem answered with an error, the
	// response was garbled, or a parser could not find the data it expected.
	ErrProtocol = errors.New("protocol error")

	// ErrFatal is returned once a device has lost the ability to maintain its
	// invariants. No further operation on that device will succeed.
	ErrFatal = errors.New("fatal device fault")

	// ErrNotFound is returned by a Parser when the response does not contain
	// the field it looks for. It is distinct from a field that is present but
	// empty.
	ErrNotFound = errors.New("response field not found")

	// ErrTransactionOpen is returned when Dispatch is called while another
	// transaction is still waiting for its response.
	ErrTransactionOpen = errors.New("transaction already open")

	// ErrEmptyCommand is returned when Dispatch is called without a command.
	ErrEmptyCommand = errors.New("empty command")

	// ErrCommandTooLong is returned when a command does not fit the command
	// buffer.
	ErrCommandTooLong = errors.New("command too long")

	// ErrResponseOverflow is returned when a response outgrows the receive
	// buffer before a final result is seen.
	ErrResponseOverflow = errors.New("response overflow")

	// ErrGarbled is returned when the modem sends bytes that cannot be part
	// of an AT response.
	ErrGarbled = errors.New("garbled response")
)
