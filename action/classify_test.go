package action_test

import (
	"errors"
	"slices"
	"testing"

	"i4.energy/across/ltem/action"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		lines    []string
		code     action.ResultCode
		terminal bool
	}{
		{name: "OK", cmd: "AT", lines: []string{"OK"}, code: action.Success, terminal: true},
		{name: "echo then OK", cmd: "ATE0", lines: []string{"ATE0", "OK"}, code: action.Success, terminal: true},
		{name: "data then OK", cmd: "AT+CSQ", lines: []string{"+CSQ: 15,99", "OK"}, code: action.Success, terminal: true},
		{name: "ERROR", cmd: "AT+QCCID", lines: []string{"ERROR"}, code: action.ProtocolError, terminal: true},
		{name: "CME error", cmd: "AT+CPIN?", lines: []string{"+CME ERROR: 10"}, code: action.ProtocolError, terminal: true},
		{name: "prompt", cmd: "AT+QISEND=0", lines: []string{"> "}, code: action.Success, terminal: true},
		{name: "nothing yet", cmd: "AT+CSQ", lines: nil, code: action.Timeout, terminal: false},
		{name: "data only", cmd: "AT+CSQ", lines: []string{"+CSQ: 15,99"}, code: action.Timeout, terminal: false},
		{name: "URC only", cmd: "AT+CSQ", lines: []string{"+QIURC: \"closed\",0"}, code: action.Timeout, terminal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, terminal := action.Classify(tt.lines, tt.cmd)
			if code != tt.code || terminal != tt.terminal {
				t.Errorf("Classify(%q, %q) = (%v, %v), want (%v, %v)",
					tt.lines, tt.cmd, code, terminal, tt.code, tt.terminal)
			}
		})
	}
}

func TestPrefixParser(t *testing.T) {
	p := action.PrefixParser(`+QCFGEXT: "querygeo",`)

	v, err := p.Parse([]string{`+QCFGEXT: "querygeo",3,1`, "unrelated", `+QCFGEXT: "querygeo",4,2`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.([]string); !slices.Equal(got, []string{"3,1", "4,2"}) {
		t.Errorf("unexpected payloads: %q", got)
	}

	if _, err := p.Parse([]string{"+CSQ: 15,99"}); !errors.Is(err, action.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		payload  string
		expected []string
	}{
		{payload: `"querygeo",1,2`, expected: []string{"querygeo", "1", "2"}},
		{payload: `0,0,"Verizon Wireless",7`, expected: []string{"0", "0", "Verizon Wireless", "7"}},
		{payload: `1, 5`, expected: []string{"1", "5"}},
		{payload: `"a,b",c`, expected: []string{"a,b", "c"}},
	}

	for _, tt := range tests {
		got, err := action.Fields(tt.payload)
		if err != nil {
			t.Errorf("Fields(%q) unexpected error: %v", tt.payload, err)
			continue
		}
		if !slices.Equal(got, tt.expected) {
			t.Errorf("Fields(%q) = %q, want %q", tt.payload, got, tt.expected)
		}
	}
}
