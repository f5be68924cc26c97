package parser

import (
	"bytes"
	"errors"
	"strings"
	"time"
)

// ParseError parses one nginx error-log line:
//
//	YYYY/MM/DD HH:MM:SS [level] pid#tid: message
//
// When the message carries a "client: <addr>" token (request-context errors
// do), the client address is recovered into the record.
func ParseError(line []byte) (ErrorRecord, error) {
	if len(line) < len(errorTimeFormat)+1 {
		return ErrorRecord{}, errors.New("unexpected format: line too short")
	}
	ts, err := time.Parse(errorTimeFormat, string(line[:len(errorTimeFormat)]))
	if err != nil {
		return ErrorRecord{}, errors.New("unexpected format: bad timestamp")
	}

	rest := line[len(errorTimeFormat):]
	if !bytes.HasPrefix(rest, []byte(" [")) {
		return ErrorRecord{}, errors.New("unexpected format: no level field")
	}
	rest = rest[2:]
	rb := bytes.IndexByte(rest, ']')
	if rb == -1 {
		return ErrorRecord{}, errors.New("unexpected format: unterminated level")
	}
	level, ok := ParseLevel(string(rest[:rb]))
	if !ok {
		return ErrorRecord{}, errors.New("unexpected format: unknown level")
	}
	rest = trimLeadingSpaces(rest[rb+1:])

	colon := bytes.Index(rest, []byte(": "))
	if colon == -1 {
		return ErrorRecord{}, errors.New("unexpected format: no message separator")
	}
	if !validPidTid(rest[:colon]) {
		return ErrorRecord{}, errors.New("unexpected format: bad pid#tid field")
	}
	msg := string(rest[colon+2:])

	return ErrorRecord{
		Time:    ts,
		Level:   level,
		Message: msg,
		Client:  extractClient(msg),
	}, nil
}

func validPidTid(b []byte) bool {
	hash := bytes.IndexByte(b, '#')
	if hash <= 0 || hash == len(b)-1 {
		return false
	}
	return allDigits(b[:hash]) && allDigits(b[hash+1:])
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(b) > 0
}

func extractClient(msg string) string {
	const marker = "client: "
	i := strings.Index(msg, marker)
	if i == -1 {
		return ""
	}
	addr := msg[i+len(marker):]
	if j := strings.IndexByte(addr, ','); j != -1 {
		addr = addr[:j]
	}
	return strings.TrimSpace(addr)
}
