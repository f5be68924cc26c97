package parser

import (
	"bytes"
	"errors"
	"strconv"
	"time"
)

// ParseAccess parses one combined-format access-log line:
//
//	$remote_addr - $remote_user [$time_local] "$request" $status $body_bytes_sent "$http_referer" "$http_user_agent"
//
// Lines in the plain common format (no referrer/user-agent fields) are
// accepted too. A malformed inner "$request" field makes the whole line
// unparseable: degraded half-records would break the histogram totals.
func ParseAccess(line []byte) (AccessRecord, error) {
	sp := bytes.IndexByte(line, ' ')
	if sp <= 0 {
		return AccessRecord{}, errors.New("unexpected format: no client field")
	}
	client := line[:sp]

	lb := bytes.IndexByte(line, '[')
	if lb == -1 {
		return AccessRecord{}, errors.New("unexpected format: no [")
	}
	rb := bytes.IndexByte(line[lb:], ']')
	if rb == -1 {
		return AccessRecord{}, errors.New("unexpected format: no ]")
	}
	rb += lb

	middle := bytes.Fields(line[sp+1 : lb])
	if len(middle) != 2 {
		return AccessRecord{}, errors.New("unexpected format: bad ident/user fields")
	}

	localTime, err := time.Parse(CommonLogFormat, string(line[lb+1:rb]))
	if err != nil {
		return AccessRecord{}, errors.New("unexpected format: bad timestamp")
	}

	rest := trimLeadingSpaces(line[rb+1:])
	request, rest, err := quotedField(rest)
	if err != nil {
		return AccessRecord{}, err
	}
	method, path, proto, err := splitRequest(request)
	if err != nil {
		return AccessRecord{}, err
	}

	rest = trimLeadingSpaces(rest)
	spIdx := bytes.IndexByte(rest, ' ')
	if spIdx == -1 {
		return AccessRecord{}, errors.New("unexpected format: no size field")
	}
	status, err := strconv.Atoi(string(rest[:spIdx]))
	if err != nil || status < 100 || status > 599 {
		return AccessRecord{}, errors.New("unexpected format: bad status")
	}
	rest = rest[spIdx+1:]

	var sizeTok []byte
	if i := bytes.IndexByte(rest, ' '); i == -1 {
		sizeTok, rest = rest, nil
	} else {
		sizeTok, rest = rest[:i], rest[i+1:]
	}
	var size uint64
	if !bytes.Equal(sizeTok, []byte("-")) {
		size, err = strconv.ParseUint(string(sizeTok), 10, 64)
		if err != nil {
			return AccessRecord{}, errors.New("unexpected format: bad size")
		}
	}

	rec := AccessRecord{
		Client: string(client),
		User:   dashToEmpty(middle[1]),
		Time:   localTime,
		Method: method,
		Path:   path,
		Proto:  proto,
		Status: status,
		Size:   size,
	}

	rest = trimLeadingSpaces(rest)
	if len(rest) == 0 {
		// Common format without referrer/user-agent.
		return rec, nil
	}
	referrer, rest, err := quotedField(rest)
	if err != nil {
		return AccessRecord{}, err
	}
	agent, _, err := quotedField(trimLeadingSpaces(rest))
	if err != nil {
		return AccessRecord{}, err
	}
	rec.Referrer = dashToEmpty(referrer)
	rec.Agent = dashToEmpty(agent)
	return rec, nil
}

// Nginx escapes `"`, `\` to `\xXX`.
// Apache escapes `"`, `\` to `\"`, `\\`.
// Either way a quote preceded by an unconsumed backslash never ends the field.
func findEndingDoubleQuote(data []byte) int {
	inEscape := false
	for i := 0; i < len(data); i++ {
		if inEscape {
			inEscape = false
		} else if data[i] == '\\' {
			inEscape = true
		} else if data[i] == '"' {
			return i
		}
	}
	return -1
}

func quotedField(b []byte) (value, rest []byte, err error) {
	if len(b) == 0 || b[0] != '"' {
		return nil, nil, errors.New("unexpected format: missing quote")
	}
	end := findEndingDoubleQuote(b[1:])
	if end == -1 {
		return nil, nil, errors.New("unexpected format: unbalanced quotes")
	}
	return b[1 : end+1], b[end+2:], nil
}

// splitRequest splits "$request" into METHOD PATH PROTOCOL. The path itself
// may contain spaces when the client sent garbage the server logged verbatim,
// so the method is everything before the first space and the protocol
// everything after the last one.
func splitRequest(req []byte) (method, path, proto string, err error) {
	errBad := errors.New("unexpected format: bad request field")
	first := bytes.IndexByte(req, ' ')
	last := bytes.LastIndexByte(req, ' ')
	if first == -1 || first == last {
		return "", "", "", errBad
	}
	m, p, v := req[:first], req[first+1:last], req[last+1:]
	if len(m) == 0 || len(p) == 0 || len(v) == 0 {
		return "", "", "", errBad
	}
	for _, c := range m {
		if c < 'A' || c > 'Z' {
			return "", "", "", errBad
		}
	}
	return string(m), string(p), string(v), nil
}

func trimLeadingSpaces(b []byte) []byte {
	for len(b) > 0 && b[0] == ' ' {
		b = b[1:]
	}
	return b
}

func dashToEmpty(b []byte) string {
	if len(b) == 1 && b[0] == '-' {
		return ""
	}
	return string(b)
}
