package action

import (
	"encoding/csv"
	"fmt"
	"strings"

	"i4.energy/across/ltem/at"
)

type lineKind int

const (
	kindData lineKind = iota
	kindEcho
	kindURC
	kindFinal
	kindPrompt
)

// classifyLine sorts one trimmed response line relative to the command in
// flight. Lines carrying the command's own response prefix are data even when
// the same prefix doubles as a URC (+CPIN: for AT+CPIN?).
func classifyLine(line, cmd, prefix string) lineKind {
	if strings.EqualFold(line, cmd) {
		return kindEcho
	}
	if prefix != "" && strings.HasPrefix(line, prefix) {
		return kindData
	}
	switch at.Classify(line) {
	case at.TypeFinal:
		return kindFinal
	case at.TypePrompt:
		return kindPrompt
	case at.TypeURC:
		return kindURC
	default:
		return kindData
	}
}

// Classify maps the lines received so far for cmd to a result code. The
// second return value reports whether a final result was seen; while it is
// false the code is Timeout, which is what the transaction resolves to if
// the budget runs out before anything else arrives.
//
// The command echo and unsolicited result codes are skipped.
func Classify(lines []string, cmd string) (ResultCode, bool) {
	prefix := at.ResponsePrefix(cmd)
	for _, line := range lines {
		switch classifyLine(line, cmd, prefix) {
		case kindFinal:
			if at.IsSuccess(line) {
				return Success, true
			}
			return ProtocolError, true
		case kindPrompt:
			return Success, true
		}
	}
	return Timeout, false
}

// Parser extracts a typed payload from the information lines of a
// successful response.
type Parser interface {
	Parse(lines []string) (any, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(lines []string) (any, error)

func (f ParserFunc) Parse(lines []string) (any, error) {
	return f(lines)
}

// PrefixParser returns a Parser that collects the payload of every line that
// starts with prefix. Lines that do not match are skipped. The value is a
// []string of payloads with the prefix removed; ErrNotFound is returned when
// no line matches.
func PrefixParser(prefix string) Parser {
	return ParserFunc(func(lines []string) (any, error) {
		var payloads []string
		for _, line := range lines {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				payloads = append(payloads, strings.TrimSpace(rest))
			}
		}
		if len(payloads) == 0 {
			return nil, fmt.Errorf("prefix %q: %w", prefix, ErrNotFound)
		}
		return payloads, nil
	})
}

// Fields splits a response payload such as `"querygeo",1,2` into its
// comma-separated fields with quotes removed.
func Fields(payload string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(payload))
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", payload, err)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}
