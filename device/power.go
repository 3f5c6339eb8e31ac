package device

import (
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/ltem/gpio"
)

type pinClaim struct {
	name    string
	pin     gpio.Pin
	mode    gpio.Mode
	initial gpio.Value
}

// claims lists the pins in the order they are claimed. Outputs come first
// so the modem never sees a power key or reset edge while inputs are
// configured.
func (d *Device) claims() []pinClaim {
	p := d.config.PinConfig
	return []pinClaim{
		{"power_key", p.PowerKey, gpio.Output, gpio.Low},
		{"reset", p.Reset, gpio.Output, gpio.Low},
		{"spi_cs", p.SpiCS, gpio.Output, gpio.High},
		{"status", p.Status, gpio.Input, gpio.Low},
		{"irq", p.IRQ, gpio.InputPullUp, gpio.Low},
	}
}

// claimPins opens the control pins, or drives the outputs back to their
// idle level when an earlier Start already opened them.
func (d *Device) claimPins() error {
	for _, c := range d.claims() {
		if d.pinsOpen {
			if c.mode != gpio.Output {
				continue
			}
			if err := d.pins.Write(c.pin, c.initial); err != nil {
				return fmt.Errorf("drive %s: %w", c.name, err)
			}
			continue
		}
		if err := d.pins.Open(c.pin, c.mode, c.initial); err != nil {
			return fmt.Errorf("open %s: %w", c.name, err)
		}
	}
	d.pinsOpen = true
	return nil
}

// releasePins closes the pins in reverse of the claim order.
func (d *Device) releasePins() error {
	if !d.pinsOpen {
		return nil
	}
	var errs []error
	p := d.config.PinConfig
	for _, pin := range []gpio.Pin{p.IRQ, p.PowerKey, p.Reset, p.Status, p.SpiCS} {
		if err := d.pins.Close(pin); err != nil {
			errs = append(errs, err)
		}
	}
	d.pinsOpen = false
	if len(errs) > 0 {
		return fmt.Errorf("close pins: %w", errs[0])
	}
	return nil
}

// pulse drives pin high for width.
func (d *Device) pulse(pin gpio.Pin, width time.Duration) error {
	if err := d.pins.Write(pin, gpio.High); err != nil {
		return err
	}
	d.config.Sleep(width)
	return d.pins.Write(pin, gpio.Low)
}

func (d *Device) poweredOn() (bool, error) {
	v, err := d.pins.Read(d.config.PinConfig.Status)
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	return v == gpio.High, nil
}

// powerOn pulses the power key and waits for the status pin.
func (d *Device) powerOn() error {
	t := d.config.Timings
	d.logger.Info("powering modem on")
	if err := d.pulse(d.config.PinConfig.PowerKey, t.PowerOnPulse); err != nil {
		return fmt.Errorf("power key: %w", err)
	}

	polls := max(1, int(t.StatusTimeout/t.StatusPoll))
	for range polls {
		on, err := d.poweredOn()
		if err != nil {
			return err
		}
		if on {
			d.ready = PoweringOn
			return nil
		}
		d.config.Sleep(t.StatusPoll)
	}
	return ErrStatusTimeout
}

// powerOff pulses the power key. The modem shuts down on its own; the
// status pin is not waited on.
func (d *Device) powerOff() error {
	t := d.config.Timings
	d.logger.Info("powering modem off")
	if err := d.pulse(d.config.PinConfig.PowerKey, t.PowerOffPulse); err != nil {
		return fmt.Errorf("power key: %w", err)
	}
	d.ready = PowerOff
	return nil
}

// resetPulse pulses the reset pin.
func (d *Device) resetPulse() error {
	t := d.config.Timings
	d.logger.Info("resetting modem", slog.Duration("pulse", t.ResetPulse))
	if err := d.pulse(d.config.PinConfig.Reset, t.ResetPulse); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	d.ready = PoweringOn
	return nil
}
