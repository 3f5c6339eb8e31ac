// Package gpio defines the pin-level contract the device lifecycle uses to
// control the modem board: power key, reset, status, interrupt and chip
// select lines.
package gpio

import "fmt"

//go:generate go tool mockgen -destination=mock_pins.go -package=gpio . Pins

// Value is the logical level of a pin.
type Value int

const (
	Low Value = iota
	High
)

func (v Value) String() string {
	if v == Low {
		return "low"
	}
	return "high"
}

// Mode is the direction and bias a pin is opened with.
type Mode int

const (
	Input Mode = iota
	Output
	InputPullUp
	InputPullDown
)

func (m Mode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputPullUp:
		return "input-pullup"
	case InputPullDown:
		return "input-pulldown"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Pin identifies a line on the pin driver, e.g. a GPIO chip offset.
type Pin int

// NoPin marks a signal that is not wired on the board.
const NoPin Pin = -1

// Pins is the pin driver of the host board.
type Pins interface {
	// Open claims pin. Outputs are driven to initial as part of the claim so
	// the line never glitches to another level.
	Open(pin Pin, mode Mode, initial Value) error
	// Close releases a claimed pin.
	Close(pin Pin) error
	// Read returns the level of a claimed pin.
	Read(pin Pin) (Value, error)
	// Write drives a claimed output pin.
	Write(pin Pin, v Value) error
}

// PinConfig maps the modem board signals to host pins.
type PinConfig struct {
	// Chip names the GPIO chip the offsets belong to (gpiocdev drivers only).
	Chip     string `yaml:"chip"`
	SpiCS    Pin    `yaml:"spi_cs"`
	IRQ      Pin    `yaml:"irq"`
	Status   Pin    `yaml:"status"`
	PowerKey Pin    `yaml:"power_key"`
	Reset    Pin    `yaml:"reset"`
	RingURC  Pin    `yaml:"ring_urc"`
	Wake     Pin    `yaml:"wake"`
}

// Validate checks that every signal the lifecycle drives is wired.
func (c PinConfig) Validate() error {
	required := []struct {
		name string
		pin  Pin
	}{
		{"spi_cs", c.SpiCS},
		{"irq", c.IRQ},
		{"status", c.Status},
		{"power_key", c.PowerKey},
		{"reset", c.Reset},
	}
	seen := make(map[Pin]string, len(required))
	for _, r := range required {
		if r.pin < 0 {
			return fmt.Errorf("pin %s is not configured", r.name)
		}
		if other, ok := seen[r.pin]; ok {
			return fmt.Errorf("pin %s shares line %d with %s", r.name, r.pin, other)
		}
		seen[r.pin] = r.name
	}
	return nil
}

// Board profiles for the LTEm1 breakouts.
var (
	// FeatherBreakout uses Feather/Arduino pin numbers.
	FeatherBreakout = PinConfig{
		SpiCS:    13,
		IRQ:      12,
		Status:   6,
		PowerKey: 11,
		Reset:    19,
		RingURC:  NoPin,
		Wake:     NoPin,
	}

	// RPiBreakout uses BCM line offsets on the Raspberry Pi header.
	RPiBreakout = PinConfig{
		Chip:     "gpiochip0",
		SpiCS:    8,  // J8_24
		IRQ:      22, // J8_15
		Status:   13, // J8_22
		PowerKey: 24, // J8_18
		Reset:    23, // J8_16
		RingURC:  NoPin,
		Wake:     NoPin,
	}
)

// Unwired returns a PinConfig with every signal set to NoPin.
func Unwired() PinConfig {
	return PinConfig{
		SpiCS:    NoPin,
		IRQ:      NoPin,
		Status:   NoPin,
		PowerKey: NoPin,
		Reset:    NoPin,
		RingURC:  NoPin,
		Wake:     NoPin,
	}
}

// Board returns the built-in profile with the given name.
func Board(name string) (PinConfig, bool) {
	switch name {
	case "feather":
		return FeatherBreakout, true
	case "rpi":
		return RPiBreakout, true
	default:
		return PinConfig{}, false
	}
}
