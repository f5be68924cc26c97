// Package parser converts raw web-server log lines into structured records.
// Only the combined/common access-log family and the standard nginx error-log
// format are supported; anything else is reported as unparseable.
package parser

import (
	"time"
)

const (
	// CommonLogFormat is the timestamp layout inside [$time_local].
	CommonLogFormat = "02/Jan/2006:15:04:05 -0700"

	errorTimeFormat = "2006/01/02 15:04:05"
)

// AccessRecord is one successfully parsed access-log line.
type AccessRecord struct {
	Client   string    `json:"client"`
	User     string    `json:"user,omitempty"`
	Time     time.Time `json:"time"`
	Method   string    `json:"method"`
	Path     string    `json:"path"`
	Proto    string    `json:"proto"`
	Status   int       `json:"status"`
	Size     uint64    `json:"size"`
	Referrer string    `json:"referrer,omitempty"`
	Agent    string    `json:"agent,omitempty"`
}

// ErrorRecord is one successfully parsed error-log line.
type ErrorRecord struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Client  string    `json:"client,omitempty"`
}

// Level is an nginx error-log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarn
	LevelError
	LevelCrit
	LevelAlert
	LevelEmerg
)

var levelNames = [...]string{"debug", "info", "notice", "warn", "error", "crit", "alert", "emerg"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseLevel maps a severity name to its Level.
func ParseLevel(s string) (Level, bool) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), true
		}
	}
	return 0, false
}

// Levels returns all severities from emerg down to debug, the order the
// display layer lists them in.
func Levels() []Level {
	return []Level{LevelEmerg, LevelAlert, LevelCrit, LevelError, LevelWarn, LevelNotice, LevelInfo, LevelDebug}
}
