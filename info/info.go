// Package info reads the modem identity and signal strength.
package info

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/device"
)

const (
	CmdIMEI     = "AT+GSN"
	CmdICCID    = "AT+QCCID"
	CmdModel    = "AT+GMM"
	CmdFirmware = "AT+QGMR"
	CmdSignal   = "AT+CSQ"
)

// RSSI bounds in dBm for the AT+CSQ range 0..31.
const (
	RSSIMin = -113
	RSSIMax = -51
	// RSSIUnknown is returned when the modem reports 99, not detectable.
	RSSIUnknown = -999
)

// firstLine returns the first information line of the response.
var firstLine = action.ParserFunc(func(lines []string) (any, error) {
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return nil, action.ErrNotFound
})

func queryString(ctx context.Context, inv action.Invoker, cmd string, parser action.Parser) (string, error) {
	res := inv.Dispatch(ctx, cmd, action.WithParser(parser))
	if err := res.Err(); err != nil {
		return "", err
	}
	switch v := res.Value.(type) {
	case string:
		return v, nil
	case []string:
		return v[0], nil
	default:
		return "", fmt.Errorf("%s: unexpected value %T: %w", cmd, res.Value, action.ErrProtocol)
	}
}

// Query reads IMEI, ICCID, model and firmware version. It stops at the
// first failing command.
func Query(ctx context.Context, inv action.Invoker) (device.ModemInfo, error) {
	var (
		m   device.ModemInfo
		err error
	)
	if m.IMEI, err = queryString(ctx, inv, CmdIMEI, firstLine); err != nil {
		return device.ModemInfo{}, fmt.Errorf("read imei: %w", err)
	}
	if m.ICCID, err = queryString(ctx, inv, CmdICCID, action.PrefixParser("+QCCID:")); err != nil {
		return device.ModemInfo{}, fmt.Errorf("read iccid: %w", err)
	}
	if m.Model, err = queryString(ctx, inv, CmdModel, firstLine); err != nil {
		return device.ModemInfo{}, fmt.Errorf("read model: %w", err)
	}
	if m.FirmwareVersion, err = queryString(ctx, inv, CmdFirmware, firstLine); err != nil {
		return device.ModemInfo{}, fmt.Errorf("read firmware version: %w", err)
	}
	return m, nil
}

// Holder caches a ModemInfo. *device.Device is a Holder.
type Holder interface {
	ModemInfo() device.ModemInfo
	SetModemInfo(device.ModemInfo)
}

// Cached returns the identity held by h, querying the modem only when
// nothing is cached yet.
func Cached(ctx context.Context, inv action.Invoker, h Holder) (device.ModemInfo, error) {
	if m := h.ModemInfo(); !m.Empty() {
		return m, nil
	}
	m, err := Query(ctx, inv)
	if err != nil {
		return device.ModemInfo{}, err
	}
	h.SetModemInfo(m)
	return m, nil
}

// RSSI returns the received signal strength in dBm, or RSSIUnknown.
func RSSI(ctx context.Context, inv action.Invoker) (int, error) {
	payload, err := queryString(ctx, inv, CmdSignal, action.PrefixParser("+CSQ:"))
	if err != nil {
		return RSSIUnknown, err
	}
	fields, err := action.Fields(payload)
	if err != nil || len(fields) < 1 {
		return RSSIUnknown, fmt.Errorf("parse %q: %w", payload, action.ErrProtocol)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return RSSIUnknown, fmt.Errorf("parse %q: %w", payload, action.ErrProtocol)
	}
	switch {
	case n == 99:
		return RSSIUnknown, nil
	case n < 0 || n > 31:
		return RSSIUnknown, fmt.Errorf("rssi %d out of range: %w", n, action.ErrProtocol)
	}
	return RSSIMin + 2*n, nil
}

// Bars scales rssi to 0..bars. RSSIUnknown is 0 bars.
func Bars(rssi, bars int) int {
	if rssi == RSSIUnknown || rssi <= RSSIMin {
		return 0
	}
	if rssi >= RSSIMax {
		return bars
	}
	span := RSSIMax - RSSIMin
	return ((rssi-RSSIMin)*bars + span - 1) / span
}

// RSSIBars reads the signal strength and scales it to 0..bars.
func RSSIBars(ctx context.Context, inv action.Invoker, bars int) (int, error) {
	if bars < 1 {
		return 0, fmt.Errorf("%w: bar count %d", action.ErrBadRequest, bars)
	}
	rssi, err := RSSI(ctx, inv)
	if err != nil {
		return 0, err
	}
	return Bars(rssi, bars), nil
}
