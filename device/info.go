package device

// ModemInfo identifies the modem and its SIM.
type ModemInfo struct {
	IMEI            string `json:"imei"`
	ICCID           string `json:"iccid"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`
}

// Empty reports whether nothing has been read from the modem yet.
func (m ModemInfo) Empty() bool {
	return m == ModemInfo{}
}

// ModemInfo returns the cached modem identity.
func (d *Device) ModemInfo() ModemInfo { return d.info }

// SetModemInfo replaces the cached modem identity.
func (d *Device) SetModemInfo(m ModemInfo) { d.info = m }
