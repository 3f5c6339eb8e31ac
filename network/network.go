// Package network covers operator selection, EPS registration and PDP
// context management.
package network

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"i4.energy/across/ltem/action"
)

// Context activation is slow on the modem side; these are the maximum
// response times from the BG96/BG77 AT manuals.
const (
	ActivateTimeout   = 150 * time.Second
	DeactivateTimeout = 40 * time.Second
	OperatorTimeout   = 180 * time.Second

	// MaxAPNLen is the longest APN the modem accepts.
	MaxAPNLen = 62
	MinCID    = 1
	MaxCID    = 16
)

// OperatorStatus is the current network operator as reported by AT+COPS?.
type OperatorStatus struct {
	Mode   int    `json:"mode"`
	Name   string `json:"name,omitempty"`
	Access int    `json:"access_technology"`
}

// Registered reports whether an operator is selected.
func (o OperatorStatus) Registered() bool { return o.Name != "" }

// RegStatus is the <stat> field of +CEREG.
type RegStatus int

const (
	NotRegistered RegStatus = iota
	RegisteredHome
	Searching
	Denied
	UnknownStatus
	RegisteredRoaming
)

func (s RegStatus) String() string {
	switch s {
	case NotRegistered:
		return "not-registered"
	case RegisteredHome:
		return "home"
	case Searching:
		return "searching"
	case Denied:
		return "denied"
	case UnknownStatus:
		return "unknown"
	case RegisteredRoaming:
		return "roaming"
	default:
		return fmt.Sprintf("RegStatus(%d)", int(s))
	}
}

// Registered reports whether the modem is attached, at home or roaming.
func (s RegStatus) Registered() bool {
	return s == RegisteredHome || s == RegisteredRoaming
}

// PDPContext is one entry of AT+QIACT?.
type PDPContext struct {
	CID    int    `json:"cid"`
	Active bool   `json:"active"`
	Type   int    `json:"type"`
	IP     string `json:"ip,omitempty"`
}

func protocolErr(payload string, err error) error {
	return fmt.Errorf("parse %q: %w: %w", payload, action.ErrProtocol, err)
}

// fieldsParser splits every line starting with prefix into fields.
func fieldsParser(prefix string) action.Parser {
	inner := action.PrefixParser(prefix)
	return action.ParserFunc(func(lines []string) (any, error) {
		v, err := inner.Parse(lines)
		if err != nil {
			return nil, err
		}
		var rows [][]string
		for _, payload := range v.([]string) {
			fields, err := action.Fields(payload)
			if err != nil {
				return nil, err
			}
			rows = append(rows, fields)
		}
		return rows, nil
	})
}

func query(ctx context.Context, inv action.Invoker, cmd, prefix string, opts ...action.Option) ([][]string, error) {
	opts = append(opts, action.WithParser(fieldsParser(prefix)))
	res := inv.Dispatch(ctx, cmd, opts...)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Value.([][]string), nil
}

func atoi(fields []string, i int) (int, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("field %d missing", i+1)
	}
	return strconv.Atoi(fields[i])
}

// Operator reads the selected operator.
func Operator(ctx context.Context, inv action.Invoker) (OperatorStatus, error) {
	rows, err := query(ctx, inv, "AT+COPS?", "+COPS:", action.WithTimeout(OperatorTimeout))
	if err != nil {
		return OperatorStatus{}, err
	}
	f := rows[0]
	var op OperatorStatus
	if op.Mode, err = atoi(f, 0); err != nil {
		return OperatorStatus{}, protocolErr(strings.Join(f, ","), err)
	}
	if len(f) >= 3 {
		op.Name = f[2]
	}
	if len(f) >= 4 {
		if op.Access, err = atoi(f, 3); err != nil {
			return OperatorStatus{}, protocolErr(strings.Join(f, ","), err)
		}
	}
	return op, nil
}

// Registration reads the EPS registration status.
func Registration(ctx context.Context, inv action.Invoker) (RegStatus, error) {
	rows, err := query(ctx, inv, "AT+CEREG?", "+CEREG:")
	if err != nil {
		return UnknownStatus, err
	}
	stat, err := atoi(rows[0], 1)
	if err != nil {
		return UnknownStatus, protocolErr(strings.Join(rows[0], ","), err)
	}
	return RegStatus(stat), nil
}

func checkCID(cid int) error {
	if cid < MinCID || cid > MaxCID {
		return fmt.Errorf("%w: context id %d outside %d..%d", action.ErrBadRequest, cid, MinCID, MaxCID)
	}
	return nil
}

// SetAPN configures PDP context cid as IPv4 with the given APN.
func SetAPN(ctx context.Context, inv action.Invoker, cid int, apn string) error {
	if err := checkCID(cid); err != nil {
		return err
	}
	if apn == "" || len(apn) > MaxAPNLen || strings.ContainsAny(apn, "\",\r\n") {
		return fmt.Errorf("%w: invalid apn %q", action.ErrBadRequest, apn)
	}
	return inv.Dispatch(ctx, fmt.Sprintf(`AT+QICSGP=%d,1,"%s"`, cid, apn)).Err()
}

// Activate brings PDP context cid up.
func Activate(ctx context.Context, inv action.Invoker, cid int) error {
	if err := checkCID(cid); err != nil {
		return err
	}
	return inv.Dispatch(ctx, fmt.Sprintf("AT+QIACT=%d", cid), action.WithTimeout(ActivateTimeout)).Err()
}

// Deactivate takes PDP context cid down.
func Deactivate(ctx context.Context, inv action.Invoker, cid int) error {
	if err := checkCID(cid); err != nil {
		return err
	}
	return inv.Dispatch(ctx, fmt.Sprintf("AT+QIDEACT=%d", cid), action.WithTimeout(DeactivateTimeout)).Err()
}

// Contexts lists the PDP contexts the modem reports. No context is not an
// error.
func Contexts(ctx context.Context, inv action.Invoker) ([]PDPContext, error) {
	rows, err := query(ctx, inv, "AT+QIACT?", "+QIACT:")
	switch {
	case errors.Is(err, action.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	out := make([]PDPContext, 0, len(rows))
	for _, f := range rows {
		var c PDPContext
		var state int
		if c.CID, err = atoi(f, 0); err != nil {
			return nil, protocolErr(strings.Join(f, ","), err)
		}
		if state, err = atoi(f, 1); err != nil {
			return nil, protocolErr(strings.Join(f, ","), err)
		}
		if c.Type, err = atoi(f, 2); err != nil {
			return nil, protocolErr(strings.Join(f, ","), err)
		}
		c.Active = state == 1
		if len(f) >= 4 {
			c.IP = f[3]
		}
		out = append(out, c)
	}
	return out, nil
}
