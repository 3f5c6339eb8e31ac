package device

import (
	"fmt"
	"strings"
)

// FunctionalLevel selects how much of the driver stack a Device builds and
// starts. Levels are ordered: each one includes everything below it.
type FunctionalLevel int

const (
	// Base drives the modem pins and the bridge transport only.
	Base FunctionalLevel = iota
	// Iop adds the buffered IO processing layer.
	Iop
	// AtCmd adds the action dispatcher.
	AtCmd
	// Full also runs the modem stack start sequence.
	Full
)

func (l FunctionalLevel) String() string {
	switch l {
	case Base:
		return "base"
	case Iop:
		return "iop"
	case AtCmd:
		return "atcmd"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("FunctionalLevel(%d)", int(l))
	}
}

func (l FunctionalLevel) valid() bool {
	return l >= Base && l <= Full
}

// ParseFunctionalLevel parses the names printed by FunctionalLevel.String.
func ParseFunctionalLevel(s string) (FunctionalLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base":
		return Base, nil
	case "iop":
		return Iop, nil
	case "atcmd", "at":
		return AtCmd, nil
	case "full":
		return Full, nil
	default:
		return Base, fmt.Errorf("unknown functional level %q", s)
	}
}

// UnmarshalText lets a level be read from YAML or flags.
func (l *FunctionalLevel) UnmarshalText(text []byte) error {
	v, err := ParseFunctionalLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (l FunctionalLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ReadyState is what the driver knows about the modem firmware.
type ReadyState int

const (
	PowerOff ReadyState = iota
	PoweringOn
	AppReady
)

func (r ReadyState) String() string {
	switch r {
	case PowerOff:
		return "power-off"
	case PoweringOn:
		return "powering-on"
	case AppReady:
		return "app-ready"
	default:
		return fmt.Sprintf("ReadyState(%d)", int(r))
	}
}

// MarshalText renders r as its String form.
func (r ReadyState) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// State is the lifecycle state of a Device.
type State int

const (
	Uninitialized State = iota
	Starting
	Running
	Stopped
	Faulted
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Starting:
		return "powering-on"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders s as its String form.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
