package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"i4.energy/across/ltem/device"
	"i4.energy/across/ltem/gpio"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the tty of the UART bridge (e.g. "/dev/ttySC0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate of the bridge UART (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// Board names a built-in pin profile ("rpi", "feather")
	Board string `yaml:"board"`
	// Pins overrides lines of the board profile when set in the config
	// file. Lines the section leaves out keep the profile's value, or NoPin
	// when Board names no profile.
	Pins *gpio.PinConfig `yaml:"pins"`
	// Chip overrides the GPIO chip of the pin profile
	Chip string `yaml:"gpio_chip"`
	// Level is the functional level the modem is started at
	Level device.FunctionalLevel `yaml:"level"`
	// APN is applied to PDP context 1 after start when set
	APN string `yaml:"apn"`
	// InitCommands run after the modem stack start
	InitCommands []string `yaml:"init_commands"`
	// PumpInterval is the period of the URC pump
	PumpInterval time.Duration `yaml:"pump_interval"`
	// Console enables the interactive AT console on stdin
	Console bool `yaml:"console"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttySC0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.Board = "rpi"
		c.Level = device.Full
		c.PumpInterval = 100 * time.Millisecond
		return nil
	}
}

// WithFile loads configuration from a YAML file. An empty path is a no-op.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}

		// Decode the pins section again on top of the board profile so
		// omitted lines are not read as line 0.
		var raw struct {
			Pins yaml.Node `yaml:"pins"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		if raw.Pins.Kind == 0 {
			return nil
		}
		pins, ok := gpio.Board(strings.ToLower(c.Board))
		if !ok {
			pins = gpio.Unwired()
		}
		if err := raw.Pins.Decode(&pins); err != nil {
			return fmt.Errorf("parse pins in %s: %w", path, err)
		}
		c.Pins = &pins
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if board := os.Getenv("LTEM_BOARD"); board != "" {
			c.Board = board
		}

		if level := os.Getenv("LTEM_LEVEL"); level != "" {
			if err := c.Level.UnmarshalText([]byte(level)); err != nil {
				return err
			}
		}

		if apn := os.Getenv("LTEM_APN"); apn != "" {
			c.APN = apn
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var errs []error
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "board":
				c.Board = f.Value.String()
			case "gpio-chip":
				c.Chip = f.Value.String()
			case "level":
				if err := c.Level.UnmarshalText([]byte(f.Value.String())); err != nil {
					errs = append(errs, err)
				}
			case "apn":
				c.APN = f.Value.String()
			case "console":
				c.Console = f.Value.String() == "true"
			}
		})
		return errors.Join(errs...)
	}
}

// PinConfig resolves the pin mapping: the file's pins section when present,
// otherwise the named board profile, with the chip override applied.
func (c *Config) PinConfig() (gpio.PinConfig, error) {
	var pins gpio.PinConfig
	if c.Pins != nil {
		pins = *c.Pins
	} else {
		board, ok := gpio.Board(strings.ToLower(c.Board))
		if !ok {
			return gpio.PinConfig{}, fmt.Errorf("unknown board %q", c.Board)
		}
		pins = board
	}
	if c.Chip != "" {
		pins.Chip = c.Chip
	}
	if err := pins.Validate(); err != nil {
		return gpio.PinConfig{}, err
	}
	return pins, nil
}
