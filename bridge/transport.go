package bridge

import (
	"context"
	"io"
)

//go:generate go tool mockgen -destination=mock_transport.go -package=bridge . Transport,Dialer

// Transport represents the byte stream to the modem through the
// UART-over-SPI bridge.
//
// A Transport is created stopped. Start brings the bridge up and Stop takes
// it down again; a stopped Transport can be started again. Reads must not
// block for long: a read that finds no data returns (0, nil) so the caller
// can poll.
type Transport interface {
	io.ReadWriter
	// Start brings the bridge up and discards anything left in its receive
	// buffer.
	Start() error
	// Stop takes the bridge down. Stopping a stopped Transport is a no-op.
	Stop() error
}

// Dialer creates the Transport for a device.
//
// Dialer abstracts how the bridge is reached (for example through the tty of
// the Linux sc16is7xx driver, or a test double) and is used during device
// construction only.
type Dialer interface {
	// Dial creates a Transport without starting it. It returns an error if
	// the transport cannot be created; an unreachable port is only detected
	// by Start.
	Dial(ctx context.Context) (Transport, error)
}
