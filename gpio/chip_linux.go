//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "ltem"

var errNotOpen = errors.New("pin not open")

// Chip drives pins through the Linux GPIO character device.
type Chip struct {
	name string

	mu    sync.Mutex
	lines map[Pin]*gpiocdev.Line
}

var _ Pins = (*Chip)(nil)

// NewChip returns a pin driver for the named chip, e.g. "gpiochip0".
func NewChip(name string) *Chip {
	return &Chip{
		name:  name,
		lines: make(map[Pin]*gpiocdev.Line),
	}
}

func (c *Chip) Open(pin Pin, mode Mode, initial Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[pin]; ok {
		return fmt.Errorf("%s line %d already open", c.name, pin)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer(consumer)}
	switch mode {
	case Output:
		opts = append(opts, gpiocdev.AsOutput(int(initial)))
	case Input:
		opts = append(opts, gpiocdev.AsInput)
	case InputPullUp:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithPullUp)
	case InputPullDown:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithPullDown)
	default:
		return fmt.Errorf("%s line %d: unsupported mode %v", c.name, pin, mode)
	}

	line, err := gpiocdev.RequestLine(c.name, int(pin), opts...)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", c.name, pin, err)
	}
	c.lines[pin] = line
	return nil
}

func (c *Chip) Close(pin Pin) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.lines[pin]
	if !ok {
		return nil
	}
	delete(c.lines, pin)
	return line.Close()
}

func (c *Chip) Read(pin Pin) (Value, error) {
	line, err := c.line(pin)
	if err != nil {
		return Low, err
	}
	v, err := line.Value()
	if err != nil {
		return Low, fmt.Errorf("read %s line %d: %w", c.name, pin, err)
	}
	if v == 0 {
		return Low, nil
	}
	return High, nil
}

func (c *Chip) Write(pin Pin, v Value) error {
	line, err := c.line(pin)
	if err != nil {
		return err
	}
	if err := line.SetValue(int(v)); err != nil {
		return fmt.Errorf("write %s line %d: %w", c.name, pin, err)
	}
	return nil
}

func (c *Chip) line(pin Pin) (*gpiocdev.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[pin]
	if !ok {
		return nil, fmt.Errorf("%s line %d: %w", c.name, pin, errNotOpen)
	}
	return line, nil
}
