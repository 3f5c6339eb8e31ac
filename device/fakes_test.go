package device_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"i4.energy/across/ltem/bridge"
	"i4.energy/across/ltem/device"
	"i4.energy/across/ltem/gpio"
)

var pins = gpio.RPiBreakout

// board simulates the modem control lines. A high-to-low edge on the power
// key toggles the modem power, which shows on the status pin.
type board struct {
	events []string
	names  map[gpio.Pin]string
	levels map[gpio.Pin]gpio.Value

	powered bool
	irq     gpio.Value
	// dead makes the modem ignore the power key.
	dead bool
}

func newBoard(powered bool) *board {
	return &board{
		powered: powered,
		irq:     gpio.High,
		levels:  make(map[gpio.Pin]gpio.Value),
		names: map[gpio.Pin]string{
			pins.SpiCS:    "spi_cs",
			pins.IRQ:      "irq",
			pins.Status:   "status",
			pins.PowerKey: "power_key",
			pins.Reset:    "reset",
		},
	}
}

func (b *board) record(format string, args ...any) {
	b.events = append(b.events, fmt.Sprintf(format, args...))
}

func (b *board) Open(pin gpio.Pin, mode gpio.Mode, initial gpio.Value) error {
	b.record("open %s %v %v", b.names[pin], mode, initial)
	if mode == gpio.Output {
		b.levels[pin] = initial
	}
	return nil
}

func (b *board) Close(pin gpio.Pin) error {
	b.record("close %s", b.names[pin])
	return nil
}

func (b *board) Read(pin gpio.Pin) (gpio.Value, error) {
	switch pin {
	case pins.Status:
		if b.powered {
			return gpio.High, nil
		}
		return gpio.Low, nil
	case pins.IRQ:
		return b.irq, nil
	}
	return b.levels[pin], nil
}

func (b *board) Write(pin gpio.Pin, v gpio.Value) error {
	b.record("write %s %v", b.names[pin], v)
	if pin == pins.PowerKey && v == gpio.Low && b.levels[pin] == gpio.High && !b.dead {
		b.powered = !b.powered
	}
	b.levels[pin] = v
	return nil
}

func (b *board) sleep(d time.Duration) {
	b.record("sleep %v", d)
}

// since returns the events recorded after the first n.
func (b *board) since(n int) []string {
	return append([]string(nil), b.events[n:]...)
}

// modemPort is a bridge transport backed by a scripted modem. Commands not
// in replies are answered with OK.
type modemPort struct {
	board    *board
	replies  map[string]string
	boot     string
	commands []string
	pending  bytes.Buffer
}

func (m *modemPort) Start() error {
	m.board.record("bridge start")
	m.pending.WriteString(m.boot)
	return nil
}

func (m *modemPort) Stop() error {
	m.board.record("bridge stop")
	return nil
}

func (m *modemPort) Write(p []byte) (int, error) {
	cmd := strings.TrimSuffix(string(p), "\r")
	m.commands = append(m.commands, cmd)
	reply, ok := m.replies[cmd]
	if !ok {
		reply = "\r\nOK\r\n"
	}
	m.pending.WriteString(reply)
	return len(p), nil
}

func (m *modemPort) Read(p []byte) (int, error) {
	if m.pending.Len() == 0 {
		return 0, nil
	}
	return m.pending.Read(p)
}

// inject queues bytes as if the modem sent them unprompted.
func (m *modemPort) inject(s string) {
	m.pending.WriteString(s)
}

func dialerFor(t *testing.T, port bridge.Transport) bridge.Dialer {
	t.Helper()
	ctrl := gomock.NewController(t)
	dialer := bridge.NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any()).Return(port, nil).AnyTimes()
	return dialer
}

type rig struct {
	board  *board
	port   *modemPort
	dev    *device.Device
	urcs   []string
	faults []error
}

func newRig(t *testing.T, level device.FunctionalLevel, powered bool, configure ...func(*device.ConfigBuilder)) *rig {
	t.Helper()
	r := &rig{board: newBoard(powered)}
	r.port = &modemPort{board: r.board, replies: map[string]string{}}

	builder := device.NewConfigBuilder().
		WithDialer(dialerFor(t, r.port)).
		WithPins(r.board).
		WithPinConfig(pins).
		WithLevel(level).
		WithPollInterval(time.Millisecond).
		WithSleep(r.board.sleep).
		WithURCHandler(func(line string) { r.urcs = append(r.urcs, line) }).
		WithFaultHandler(func(err error) { r.faults = append(r.faults, err) })
	for _, c := range configure {
		c(builder)
	}
	config, err := builder.Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	r.dev, err = device.New(t.Context(), config)
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	return r
}

var claimEvents = []string{
	"open power_key output low",
	"open reset output low",
	"open spi_cs output high",
	"open status input low",
	"open irq input-pullup low",
}
