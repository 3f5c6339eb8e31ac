// Package iop is the buffered input/output processing layer between the
// bridge transport and the action dispatcher.
//
// Between transactions the device pump calls Poll, which drains the bridge,
// keeps unsolicited result codes in a bounded queue and drops orphaned
// response lines. During a transaction the dispatcher reads through the
// Buffer and hands back any URCs it skips with PushURC.
package iop

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"i4.energy/across/ltem/at"
)

const (
	// DefaultURCCapacity bounds the URC queue.
	DefaultURCCapacity = 32
	// RxCapacity bounds bytes held between polls.
	RxCapacity = 512

	pollChunk = 64
)

// ErrNotStarted is returned by Read, Write and Poll before Start.
var ErrNotStarted = errors.New("iop not started")

// Buffer is the IOP layer over a transport.
type Buffer struct {
	port   io.ReadWriter
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	rx       []byte
	urcs     []string
	capacity int
	dropped  int
}

// New returns a stopped Buffer over port. A nil logger discards.
func New(port io.ReadWriter, logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Buffer{
		port:     port,
		logger:   logger,
		capacity: DefaultURCCapacity,
	}
}

// Start enables the layer and clears anything buffered.
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	b.rx = b.rx[:0]
}

// Stop disables the layer. Queued URCs are kept.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
}

// Started reports whether the layer is enabled.
func (b *Buffer) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Read serves bytes left over from the last Poll before reading the
// transport.
func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return 0, ErrNotStarted
	}
	if len(b.rx) > 0 {
		n := copy(p, b.rx)
		b.rx = b.rx[n:]
		b.mu.Unlock()
		return n, nil
	}
	b.mu.Unlock()
	return b.port.Read(p)
}

// Unread puts p back in front of the receive buffer so the next Poll or
// Read sees it first. The Buffer keeps its own copy of p.
func (b *Buffer) Unread(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rx := make([]byte, 0, len(p)+len(b.rx))
	rx = append(rx, p...)
	b.rx = append(rx, b.rx...)
}

func (b *Buffer) Write(p []byte) (int, error) {
	if !b.Started() {
		return 0, ErrNotStarted
	}
	return b.port.Write(p)
}

// Poll drains whatever the transport has buffered. Complete URC lines are
// queued; other complete lines have no transaction to belong to and are
// dropped. A trailing partial line is kept for the next Poll or Read.
func (b *Buffer) Poll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return ErrNotStarted
	}

	buf := make([]byte, pollChunk)
	for {
		n, err := b.port.Read(buf)
		if n > 0 {
			b.rx = append(b.rx, buf[:n]...)
			b.splitLocked()
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (b *Buffer) splitLocked() {
	for {
		advance, token, _ := at.Splitter(b.rx, false)
		if advance == 0 {
			break
		}
		b.rx = b.rx[advance:]

		line := strings.TrimSpace(string(token))
		if line == "" {
			continue
		}
		if at.Classify(line) == at.TypeURC {
			b.pushLocked(line)
			continue
		}
		b.logger.Debug("dropping orphaned line", slog.String("line", line))
	}
	if len(b.rx) > RxCapacity {
		b.logger.Warn("receive buffer overflow", slog.Int("discarded", len(b.rx)))
		b.rx = b.rx[:0]
	}
}

// PushURC queues a URC line. When the queue is full the oldest entry is
// dropped.
func (b *Buffer) PushURC(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushLocked(line)
}

func (b *Buffer) pushLocked(line string) {
	if len(b.urcs) >= b.capacity {
		b.urcs = b.urcs[1:]
		b.dropped++
		b.logger.Warn("urc queue full, dropping oldest", slog.Int("dropped_total", b.dropped))
	}
	b.urcs = append(b.urcs, line)
}

// TakeURCs returns and clears the queued URCs in arrival order.
func (b *Buffer) TakeURCs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	urcs := b.urcs
	b.urcs = nil
	return urcs
}

// Dropped returns how many URCs were lost to a full queue.
func (b *Buffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
