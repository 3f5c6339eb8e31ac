package device

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/bridge"
	"i4.energy/across/ltem/gpio"
)

// Default modem timings, taken from the BG96/BG77 hardware design guides.
const (
	DefaultPowerOnPulse    = 500 * time.Millisecond
	DefaultPowerOffPulse   = 650 * time.Millisecond
	DefaultResetPulse      = 150 * time.Millisecond
	DefaultIrqSettleDelay  = 1000 * time.Millisecond
	DefaultStatusTimeout   = 8 * time.Second
	DefaultStatusPoll      = 50 * time.Millisecond
	DefaultAppReadyTimeout = 10 * time.Second
)

// Timings are the pulse widths and waits of the power sequences.
type Timings struct {
	PowerOnPulse    time.Duration
	PowerOffPulse   time.Duration
	ResetPulse      time.Duration
	IrqSettleDelay  time.Duration
	StatusTimeout   time.Duration
	StatusPoll      time.Duration
	AppReadyTimeout time.Duration
}

func (t *Timings) setDefaults() {
	if t.PowerOnPulse == 0 {
		t.PowerOnPulse = DefaultPowerOnPulse
	}
	if t.PowerOffPulse == 0 {
		t.PowerOffPulse = DefaultPowerOffPulse
	}
	if t.ResetPulse == 0 {
		t.ResetPulse = DefaultResetPulse
	}
	if t.IrqSettleDelay == 0 {
		t.IrqSettleDelay = DefaultIrqSettleDelay
	}
	if t.StatusTimeout == 0 {
		t.StatusTimeout = DefaultStatusTimeout
	}
	if t.StatusPoll == 0 {
		t.StatusPoll = DefaultStatusPoll
	}
	if t.AppReadyTimeout == 0 {
		t.AppReadyTimeout = DefaultAppReadyTimeout
	}
}

// Config holds everything a Device is built from.
type Config struct {
	Dialer    bridge.Dialer
	Pins      gpio.Pins
	PinConfig gpio.PinConfig
	// Level is the highest functional level the Device is built for.
	Level  FunctionalLevel
	Logger *slog.Logger
	// FaultHandler is called once when the device faults.
	FaultHandler FaultHandler
	// OnURC receives every URC drained by DoWork.
	OnURC func(line string)
	// ATTimeout is the dispatcher default budget.
	ATTimeout time.Duration
	// PollInterval is the dispatcher pause between empty reads.
	PollInterval time.Duration
	// InitCommands run after ATE0 and AT+CMEE=2 when the modem stack starts.
	InitCommands []string
	Timings      Timings
	// Sleep waits between pin transitions. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	if c.Pins == nil {
		return ErrNoPins
	}
	if !c.Level.valid() {
		return fmt.Errorf("invalid functional level %v", c.Level)
	}
	if err := c.PinConfig.Validate(); err != nil {
		return fmt.Errorf("pin config: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.ATTimeout == 0 {
		c.ATTimeout = action.DefaultTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = action.DefaultPollInterval
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	c.Timings.setDefaults()
}

// ConfigBuilder builds a validated Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder for a Full level device.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: Config{Level: Full}}
}

func (b *ConfigBuilder) WithDialer(d bridge.Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithPins(p gpio.Pins) *ConfigBuilder {
	b.config.Pins = p
	return b
}

func (b *ConfigBuilder) WithPinConfig(c gpio.PinConfig) *ConfigBuilder {
	b.config.PinConfig = c
	return b
}

func (b *ConfigBuilder) WithLevel(l FunctionalLevel) *ConfigBuilder {
	b.config.Level = l
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithFaultHandler(h FaultHandler) *ConfigBuilder {
	b.config.FaultHandler = h
	return b
}

func (b *ConfigBuilder) WithURCHandler(h func(line string)) *ConfigBuilder {
	b.config.OnURC = h
	return b
}

func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.config.ATTimeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

func (b *ConfigBuilder) WithInitCommands(cmds ...string) *ConfigBuilder {
	b.config.InitCommands = append(b.config.InitCommands, cmds...)
	return b
}

func (b *ConfigBuilder) WithTimings(t Timings) *ConfigBuilder {
	b.config.Timings = t
	return b
}

func (b *ConfigBuilder) WithSleep(sleep func(time.Duration)) *ConfigBuilder {
	b.config.Sleep = sleep
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
