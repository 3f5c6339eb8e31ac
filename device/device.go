// Package device manages the lifecycle of one LTE modem attached through a
// UART-over-SPI bridge: pin control, power sequencing, bridge and IO
// processing start-up, and the modem stack start sequence.
//
// A Device is not safe for concurrent use. Callers serialize Start, Stop,
// Reset, DoWork and every dispatch on one logical thread of control.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/at"
	"i4.energy/across/ltem/bridge"
	"i4.energy/across/ltem/gpio"
	"i4.energy/across/ltem/iop"
)

// Device is one modem instance.
type Device struct {
	config       Config
	logger       *slog.Logger
	faultHandler FaultHandler

	pins       gpio.Pins
	transport  bridge.Transport
	iop        *iop.Buffer
	dispatcher *action.Dispatcher

	state        State
	ready        ReadyState
	startedLevel FunctionalLevel
	started      bool
	pinsOpen     bool
	faultErr     error
	info         ModemInfo
}

// New builds a Device for config.Level. It dials the bridge but does not
// touch the pins or start anything; call Start for that.
//
// Configuration errors are returned as is. A failure to create the bridge
// goes through the fault path and the returned error wraps action.ErrFatal.
func New(ctx context.Context, config Config) (*Device, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	d := &Device{
		config:       config,
		logger:       config.Logger,
		faultHandler: config.FaultHandler,
		pins:         config.Pins,
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, d.fault(fmt.Errorf("create bridge: %w", err))
	}
	if transport == nil {
		return nil, d.fault(errors.New("create bridge: dialer returned no transport"))
	}
	d.transport = transport

	if config.Level >= Iop {
		d.iop = iop.New(transport, d.logger)
	}
	if config.Level >= AtCmd {
		d.dispatcher = action.NewDispatcher(d.iop, action.Config{
			Logger:         d.logger,
			DefaultTimeout: config.ATTimeout,
			PollInterval:   config.PollInterval,
			OnURC:          d.iop.PushURC,
		})
	}

	d.logger.Debug("device created", slog.String("level", config.Level.String()))
	return d, nil
}

// Start brings the device up to level. It claims the pins, powers the modem
// on (cycling it when the bridge interrupt line is latched), starts the
// bridge, the IO processing layer from Iop, and the modem stack at Full.
//
// level must not exceed the constructed level nor fall below a level an
// earlier Start reached.
func (d *Device) Start(ctx context.Context, level FunctionalLevel) error {
	if err := d.usable(); err != nil {
		return err
	}
	if !level.valid() || level > d.config.Level {
		return fmt.Errorf("start at %v, built for %v: %w", level, d.config.Level, ErrLevelUnavailable)
	}
	if d.started && level < d.startedLevel {
		return fmt.Errorf("start at %v, already reached %v: %w", level, d.startedLevel, ErrLevelUnavailable)
	}

	d.state = Starting
	if err := d.claimPins(); err != nil {
		return d.fault(err)
	}
	if err := d.powerUp(); err != nil {
		return d.fault(err)
	}

	if err := d.transport.Start(); err != nil {
		return d.fault(fmt.Errorf("start bridge: %w", err))
	}
	if level >= Iop {
		d.iop.Start()
	}
	if level >= Full {
		if err := d.startModemStack(ctx); err != nil {
			return d.fault(err)
		}
	}

	d.started = true
	d.startedLevel = level
	d.state = Running
	d.logger.Info("device running",
		slog.String("level", level.String()),
		slog.String("ready_state", d.ready.String()))
	return nil
}

// powerUp leaves the modem powered on. A modem found on with the bridge
// interrupt line low is power cycled, since the bridge cannot clear an
// interrupt latched before this process started.
func (d *Device) powerUp() error {
	on, err := d.poweredOn()
	if err != nil {
		return err
	}
	if !on {
		return d.powerOn()
	}

	d.ready = AppReady
	irq, err := d.pins.Read(d.config.PinConfig.IRQ)
	if err != nil {
		return fmt.Errorf("read irq: %w", err)
	}
	if irq == gpio.High {
		return nil
	}

	d.logger.Warn("bridge interrupt latched, power cycling modem")
	if err := d.powerOff(); err != nil {
		return err
	}
	d.config.Sleep(d.config.Timings.IrqSettleDelay)
	return d.powerOn()
}

// startModemStack waits for the firmware to answer AT, then applies the
// session settings and the configured init commands.
func (d *Device) startModemStack(ctx context.Context) error {
	d.pump()

	attempts := max(1, int(d.config.Timings.AppReadyTimeout/d.config.ATTimeout))
	ready := false
	for range attempts {
		res := d.dispatcher.Dispatch(ctx, at.CmdAt)
		if res.Code == action.Success {
			ready = true
			break
		}
		if ctx.Err() != nil {
			break
		}
		if res.Code != action.Timeout {
			d.config.Sleep(d.config.Timings.StatusPoll)
		}
	}
	if !ready {
		return ErrNotReady
	}
	d.ready = AppReady

	cmds := append([]string{at.CmdEchoOff, at.CmdVerboseErrors}, d.config.InitCommands...)
	for _, cmd := range cmds {
		if err := d.dispatcher.Dispatch(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("modem init %s: %w", cmd, err)
		}
	}
	return nil
}

// Stop powers the modem off. Subsystems are kept and Start may be called
// again.
func (d *Device) Stop() error {
	if err := d.usable(); err != nil {
		return err
	}
	d.state = Stopped
	if !d.pinsOpen {
		d.ready = PowerOff
		return nil
	}
	if err := d.powerOff(); err != nil {
		return d.fault(err)
	}
	return nil
}

// Destroy powers the modem off and releases everything in reverse start
// order. All later operations return ErrDestroyed.
func (d *Device) Destroy() error {
	if d.state == Destroyed {
		return ErrDestroyed
	}

	var errs []error
	if d.pinsOpen && d.faultErr == nil {
		if err := d.powerOff(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.releasePins(); err != nil {
		errs = append(errs, err)
	}
	if d.iop != nil {
		d.iop.Stop()
	}
	if d.transport != nil {
		if err := d.transport.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop bridge: %w", err))
		}
	}

	d.dispatcher = nil
	d.iop = nil
	d.transport = nil
	d.ready = PowerOff
	d.state = Destroyed
	d.logger.Info("device destroyed")
	return errors.Join(errs...)
}

// Reset pulses the modem reset line. With restart the bridge, the IO
// processing layer and the modem stack are started again up to the level
// the device was started at. The power-on test is not repeated.
func (d *Device) Reset(ctx context.Context, restart bool) error {
	if err := d.usable(); err != nil {
		return err
	}
	if !d.pinsOpen {
		return ErrNotStarted
	}
	if err := d.resetPulse(); err != nil {
		return d.fault(err)
	}
	if !restart {
		return nil
	}

	if err := d.transport.Stop(); err != nil {
		return d.fault(fmt.Errorf("stop bridge: %w", err))
	}
	if err := d.transport.Start(); err != nil {
		return d.fault(fmt.Errorf("start bridge: %w", err))
	}
	if d.startedLevel >= Iop {
		d.iop.Stop()
		d.iop.Start()
	}
	if d.startedLevel >= Full {
		if err := d.startModemStack(ctx); err != nil {
			return d.fault(err)
		}
	}
	return nil
}

// DoWork is the cooperative pump. While no transaction is open it drains
// the bridge through the IO processing layer, tracks the modem ready state
// from URCs and passes every URC to the configured handler. It never
// blocks on the modem.
func (d *Device) DoWork() {
	if d.usable() != nil || d.state != Running {
		return
	}
	d.pump()
}

func (d *Device) pump() {
	if d.iop == nil || !d.iop.Started() {
		return
	}
	if d.dispatcher != nil && d.dispatcher.Busy() {
		return
	}
	if err := d.iop.Poll(); err != nil {
		d.logger.Warn("iop poll failed", slog.Any("error", err))
	}
	for _, urc := range d.iop.TakeURCs() {
		d.applyURC(urc)
		if d.config.OnURC != nil {
			d.config.OnURC(urc)
		}
	}
}

func (d *Device) applyURC(urc string) {
	prev := d.ready
	switch urc {
	case at.UrcReady, at.UrcAppReady:
		d.ready = AppReady
	case at.UrcPoweredDown:
		d.ready = PowerOff
	default:
		return
	}
	if prev != d.ready {
		d.logger.Info("modem ready state changed",
			slog.String("from", prev.String()),
			slog.String("to", d.ready.String()))
	}
}

// Dispatcher returns the action dispatcher. It fails with
// ErrCapabilityUnavailable below AtCmd.
func (d *Device) Dispatcher() (*action.Dispatcher, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if d.dispatcher == nil {
		return nil, ErrCapabilityUnavailable
	}
	return d.dispatcher, nil
}

// Iop returns the IO processing layer. It fails with
// ErrCapabilityUnavailable below Iop.
func (d *Device) Iop() (*iop.Buffer, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if d.iop == nil {
		return nil, ErrCapabilityUnavailable
	}
	return d.iop, nil
}

// Invoker returns an action.Invoker that refuses to dispatch unless the
// device is Running, and reports Fatal once the device has faulted.
func (d *Device) Invoker() (action.Invoker, error) {
	if _, err := d.Dispatcher(); err != nil {
		return nil, err
	}
	return guardedInvoker{d}, nil
}

type guardedInvoker struct {
	d *Device
}

func (g guardedInvoker) Dispatch(ctx context.Context, cmd string, opts ...action.Option) action.Result {
	d := g.d
	if err := d.usable(); err != nil {
		return action.Result{Code: action.Fatal, Command: cmd, Cause: err}
	}
	if d.state != Running {
		return action.Result{Code: action.BadRequest, Command: cmd, Cause: ErrNotStarted}
	}
	if d.startedLevel < AtCmd {
		return action.Result{
			Code:    action.BadRequest,
			Command: cmd,
			Cause:   fmt.Errorf("started at %v: %w", d.startedLevel, ErrCapabilityUnavailable),
		}
	}
	res := d.dispatcher.Dispatch(ctx, cmd, opts...)
	if res.Code == action.Fatal {
		res.Cause = d.fault(res.Err())
	}
	return res
}

// State returns the lifecycle state.
func (d *Device) State() State { return d.state }

// ReadyState returns the modem ready state.
func (d *Device) ReadyState() ReadyState { return d.ready }

// Level returns the level reached by the last successful Start, or Base
// before any.
func (d *Device) Level() FunctionalLevel { return d.startedLevel }

// BuiltLevel returns the level the device was constructed for.
func (d *Device) BuiltLevel() FunctionalLevel { return d.config.Level }

// Err returns the fault error, or nil when the device has not faulted.
func (d *Device) Err() error { return d.faultErr }
