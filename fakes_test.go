package main

import (
	"context"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/device"
)

type fakeModem struct {
	inv    action.Invoker
	invErr error
	state  device.State
	ready  device.ReadyState
	level  device.FunctionalLevel
	info   device.ModemInfo
	resets []bool
}

func (m *fakeModem) Invoker() (action.Invoker, error) {
	if m.invErr != nil {
		return nil, m.invErr
	}
	return m.inv, nil
}

func (m *fakeModem) State() device.State { return m.state }
func (m *fakeModem) ReadyState() device.ReadyState { return m.ready }
func (m *fakeModem) Level() device.FunctionalLevel { return m.level }
func (m *fakeModem) ModemInfo() device.ModemInfo { return m.info }
func (m *fakeModem) SetModemInfo(info device.ModemInfo) { m.info = info }

func (m *fakeModem) Reset(_ context.Context, restart bool) error {
	m.resets = append(m.resets, restart)
	return nil
}
