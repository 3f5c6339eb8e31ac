package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also
// recognizes the data input prompt ("> ").
//
// BGx modules echo commands by default. The echo is terminated by a bare CR
// followed by the CRLF of the next line, so an echoed command comes out as a
// token with a trailing CR. Callers trim tokens before classifying them.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match data Prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case line == UrcReady, line == UrcAppReady, line == UrcPoweredDown, line == UrcCall:
		return TypeURC
	case strings.HasPrefix(line, UrcCPin),
		strings.HasPrefix(line, UrcQInd),
		strings.HasPrefix(line, UrcQIUrc),
		strings.HasPrefix(line, UrcGeofence):
		return TypeURC
	default:
		return TypeData
	}
}

// IsSuccess reports whether a final line completes a command successfully.
func IsSuccess(line string) bool {
	return line == OK
}

// ResponsePrefix returns the information response prefix of an extended
// command, e.g. "+QCFGEXT:" for `AT+QCFGEXT="querygeo",1`. Basic commands
// such as ATE0 have no prefix and return the empty string.
func ResponsePrefix(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if len(cmd) < 3 || !strings.EqualFold(cmd[:2], "AT") || (cmd[2] != '+' && cmd[2] != '^') {
		return ""
	}
	name := cmd[2:]
	if i := strings.IndexAny(name, "=?"); i >= 0 {
		name = name[:i]
	}
	return strings.ToUpper(name) + ":"
}
