package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory baud rate of BGx modules.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single read so the dispatcher can poll.
	DefaultReadTimeout = 20 * time.Millisecond
)

var (
	// ErrNotStarted is returned by Read and Write on a stopped transport.
	ErrNotStarted = errors.New("bridge: transport not started")

	errNoPortName = errors.New("bridge: serial port name is required")
	errNilContext = errors.New("bridge: context is nil")
)

// SerialDialer creates Serial transports. On Linux the SC16IS741A bridge is
// served by the sc16is7xx driver and appears as a tty such as /dev/ttySC0.
type SerialDialer struct {
	// PortName is the tty of the bridge.
	PortName string
	// BaudRate is used when Mode is nil. Zero selects DefaultBaudRate.
	BaudRate int
	// Mode overrides the full serial mode.
	Mode *serial.Mode
	// ReadTimeout bounds a single read. Zero selects DefaultReadTimeout.
	ReadTimeout time.Duration
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errNilContext
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.PortName == "" {
		return nil, errNoPortName
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}
	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Serial{
		name:        d.PortName,
		mode:        mode,
		readTimeout: readTimeout,
		open:        serial.Open,
	}, nil
}

// Serial is a Transport over a serial port.
type Serial struct {
	name        string
	mode        *serial.Mode
	readTimeout time.Duration
	open        func(name string, mode *serial.Mode) (serial.Port, error)

	mu   sync.Mutex
	port serial.Port
}

// Start opens the port. Starting a started transport is a no-op.
func (s *Serial) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}

	port, err := s.open(s.name, s.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.name, err)
	}
	if err := port.SetReadTimeout(s.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout on %s: %w", s.name, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return fmt.Errorf("reset input buffer on %s: %w", s.name, err)
	}
	s.port = port
	return nil
}

// Stop closes the port.
func (s *Serial) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	port := s.current()
	if port == nil {
		return 0, ErrNotStarted
	}
	return port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	port := s.current()
	if port == nil {
		return 0, ErrNotStarted
	}
	return port.Write(p)
}

func (s *Serial) current() serial.Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// String identifies the transport in logs.
func (s *Serial) String() string {
	return fmt.Sprintf("serial(%s@%d)", s.name, s.mode.BaudRate)
}
