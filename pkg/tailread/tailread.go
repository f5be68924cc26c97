// Package tailread reads the most recent lines of a log file without
// scanning the whole file. Each call is a fresh, stateless read from the
// end of whatever is on disk, so rotation and truncation between calls need
// no special handling.
package tailread

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const chunkSize = 64 * 1024

// Failure classifies a tail read error for reporting.
type Failure int

const (
	FailureNone Failure = iota
	FailureNotFound
	FailurePermission
	FailureRead
)

var failureNames = [...]string{"", "not found", "permission denied", "read error"}

func (f Failure) String() string {
	if f < 0 || int(f) >= len(failureNames) {
		return "unknown"
	}
	return failureNames[f]
}

func (f Failure) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Classify maps a Tail error to its Failure kind.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, fs.ErrNotExist):
		return FailureNotFound
	case errors.Is(err, fs.ErrPermission):
		return FailurePermission
	default:
		return FailureRead
	}
}

// Tail returns at most maxLines lines from the end of the file at path.
// It reads backwards in fixed-size chunks and stops as soon as enough line
// breaks have been seen, so memory stays bounded by the window even for
// arbitrarily large files. The file being appended to concurrently is fine;
// a partially written last line simply shows up completed next call.
func Tail(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	size := st.Size()
	if size == 0 {
		return nil, nil
	}

	var (
		buf      []byte
		off      = size
		newlines int
	)
	// maxLines lines need at most maxLines+1 newlines around them.
	for off > 0 && newlines <= maxLines {
		n := int64(chunkSize)
		if off < n {
			n = off
		}
		off -= n
		chunk := make([]byte, n)
		if _, err := f.ReadAt(chunk, off); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		newlines += bytes.Count(chunk, []byte{'\n'})
		buf = append(chunk, buf...)
	}

	buf = bytes.TrimRight(buf, "\n")
	if len(buf) == 0 {
		return nil, nil
	}
	raw := bytes.Split(buf, []byte{'\n'})
	if len(raw) > maxLines {
		raw = raw[len(raw)-maxLines:]
	}
	lines := make([]string, len(raw))
	for i, b := range raw {
		lines[i] = string(bytes.TrimSuffix(b, []byte{'\r'}))
	}
	return lines, nil
}
