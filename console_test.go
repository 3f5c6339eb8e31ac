package main

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/device"
)

func newTestConsole(t *testing.T) (*Console, *action.MockInvoker, *fakeModem, *bytes.Buffer) {
	t.Helper()
	inv := action.NewMockInvoker(gomock.NewController(t))
	modem := &fakeModem{inv: inv, state: device.Running, ready: device.AppReady, level: device.Full}
	var out bytes.Buffer
	return &Console{Modem: modem, Lock: &sync.Mutex{}, out: &out}, inv, modem, &out
}

func TestConsoleAT(t *testing.T) {
	c, inv, _, out := newTestConsole(t)
	inv.EXPECT().
		Dispatch(gomock.Any(), "at+csq", gomock.Any()).
		Return(action.Result{
			Code:     action.Success,
			Lines:    []string{"+CSQ: 20,99"},
			Final:    "OK",
			Duration: 12 * time.Millisecond,
		})

	assert.False(t, c.exec(t.Context(), "  at+csq "))
	assert.Contains(t, out.String(), "+CSQ: 20,99\nOK\n")
	assert.Contains(t, out.String(), "[success in 12ms]")
}

func TestConsoleATError(t *testing.T) {
	c, inv, _, out := newTestConsole(t)
	inv.EXPECT().
		Dispatch(gomock.Any(), "AT+QIACT=1", gomock.Any()).
		Return(action.Result{Code: action.ProtocolError, Command: "AT+QIACT=1", Final: "ERROR"})

	c.exec(t.Context(), "AT+QIACT=1")
	assert.Contains(t, out.String(), "[protocol error]")
}

func TestConsoleCommands(t *testing.T) {
	c, _, modem, out := newTestConsole(t)

	assert.False(t, c.exec(t.Context(), ""))
	assert.Empty(t, out.String())

	c.exec(t.Context(), "status")
	assert.Contains(t, out.String(), "state: running")

	c.exec(t.Context(), "reset restart")
	c.exec(t.Context(), "reset")
	assert.Equal(t, []bool{true, false}, modem.resets)

	out.Reset()
	c.exec(t.Context(), "geo x")
	assert.Contains(t, out.String(), "Invalid geofence id")

	out.Reset()
	c.exec(t.Context(), "frobnicate")
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, c.exec(t.Context(), "quit"))
}

func TestConsoleUnavailable(t *testing.T) {
	c, _, modem, out := newTestConsole(t)
	modem.invErr = device.ErrCapabilityUnavailable

	c.exec(t.Context(), "AT")
	assert.Contains(t, out.String(), "capability unavailable")
}
