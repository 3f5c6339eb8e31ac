package device

import (
	"fmt"
	"log/slog"

	"i4.energy/across/ltem/action"
)

// FaultHandler is notified when the device enters the Faulted state. The
// error wraps action.ErrFatal and the original cause.
type FaultHandler func(err error)

// RegisterFaultHandler replaces the fault handler set in the Config.
func (d *Device) RegisterFaultHandler(h FaultHandler) {
	d.faultHandler = h
}

// fault is the single escalation path for unrecoverable errors. The device
// stays Faulted: every later operation returns the returned error.
func (d *Device) fault(err error) error {
	if d.faultErr != nil {
		return d.faultErr
	}
	d.faultErr = fmt.Errorf("%w: %w", action.ErrFatal, err)
	d.state = Faulted
	d.logger.Error("device fault", slog.Any("error", err))
	if d.faultHandler != nil {
		d.faultHandler(d.faultErr)
	}
	return d.faultErr
}

// usable returns the error an operation must fail with, if any.
func (d *Device) usable() error {
	switch {
	case d.state == Destroyed:
		return ErrDestroyed
	case d.faultErr != nil:
		return d.faultErr
	}
	return nil
}
