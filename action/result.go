package action

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResultCode classifies the outcome of an action.
type ResultCode int

const (
	Success ResultCode = iota
	BadRequest
	Timeout
	ProtocolError
	Fatal
)

func (c ResultCode) String() string {
	switch c {
	case Success:
		return "success"
	case BadRequest:
		return "bad request"
	case Timeout:
		return "timeout"
	case ProtocolError:
		return "protocol error"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("ResultCode(%d)", int(c))
	}
}

// Err returns the sentinel error for the code, or nil for Success.
func (c ResultCode) Err() error {
	switch c {
	case Success:
		return nil
	case BadRequest:
		return ErrBadRequest
	case Timeout:
		return ErrTimeout
	case ProtocolError:
		return ErrProtocol
	default:
		return ErrFatal
	}
}

// CodeOf maps an error returned by this module back to its result code.
// A nil error is Success; an error that wraps none of the sentinels is
// treated as a protocol error.
func CodeOf(err error) ResultCode {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrFatal):
		return Fatal
	case errors.Is(err, ErrBadRequest):
		return BadRequest
	case errors.Is(err, ErrTimeout):
		return Timeout
	default:
		return ProtocolError
	}
}

// Result is the classified outcome of one transaction.
type Result struct {
	Code ResultCode
	// Command is the command as written, without terminator.
	Command string
	// Lines holds the information lines of the response. The command echo,
	// unsolicited result codes and the final result line are not included.
	Lines []string
	// Final is the final result line (OK, ERROR, +CME ERROR: ...), empty on
	// timeout.
	Final string
	// Value is the parser output. It is only set on Success when a parser
	// was supplied.
	Value any
	// Cause carries the underlying reason for a non-success code, if any.
	Cause error
	// Duration is the time the transaction was open.
	Duration time.Duration
}

// Response returns the information lines joined by newlines.
func (r Result) Response() string {
	return strings.Join(r.Lines, "\n")
}

// Err returns nil on Success. Otherwise it returns an error wrapping the
// sentinel for the code and, if present, the cause.
func (r Result) Err() error {
	sentinel := r.Code.Err()
	if sentinel == nil {
		return nil
	}
	switch {
	case r.Cause != nil && !errors.Is(r.Cause, sentinel):
		return fmt.Errorf("%q: %w: %w", r.Command, sentinel, r.Cause)
	case r.Cause != nil:
		return fmt.Errorf("%q: %w", r.Command, r.Cause)
	case r.Final != "":
		return fmt.Errorf("%q: %w: %s", r.Command, sentinel, r.Final)
	default:
		return fmt.Errorf("%q: %w", r.Command, sentinel)
	}
}
