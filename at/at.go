package at

const (
	// Terminal Control
	CRLF       = "\r\n"
	Terminator = "\r"
	Prompt     = "> "

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes) raised by BGx modules
	UrcReady       = "RDY"
	UrcAppReady    = "APP RDY"
	UrcPoweredDown = "POWERED DOWN"
	UrcCPin        = "+CPIN:"
	UrcQInd        = "+QIND:"
	UrcQIUrc       = "+QIURC:"
	UrcCall        = "RING"
	UrcGeofence    = "+QGNSSGEO:"

	// Commands
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=2"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CSQ: ...)
	TypePrompt                     // Data input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypeData:
		return "data"
	case TypePrompt:
		return "prompt"
	default:
		return "unknown"
	}
}
