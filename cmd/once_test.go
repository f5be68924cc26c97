package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnceJSON(t *testing.T) {
	dir := t.TempDir()
	accessLog := filepath.Join(dir, "access.log")
	errorLog := filepath.Join(dir, "error.log")
	require.NoError(t, os.WriteFile(accessLog, []byte(
		`10.0.0.1 - - [01/Jan/2025:10:00:00 +0000] "GET /a HTTP/1.1" 200 100 "-" "-"`+"\n"+
			`10.0.0.2 - - [01/Jan/2025:11:00:00 +0000] "GET /b HTTP/1.1" 404 0 "-" "-"`+"\n"+
			"garbage\n"), 0644))
	require.NoError(t, os.WriteFile(errorLog, []byte(
		"2025/01/01 11:00:00 [error] 1#1: boom, client: 10.0.0.2\n"), 0644))

	root := RootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"once", accessLog, "--error-log", errorLog, "--json"})
	require.NoError(t, root.Execute())

	var snap struct {
		Total       uint64            `json:"total_requests"`
		Unparsed    uint64            `json:"unparseable_lines"`
		Classes     map[string]uint64 `json:"status_summary"`
		ErrorLevels map[string]uint64 `json:"error_levels"`
		Degraded    bool              `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))

	assert.Equal(t, uint64(2), snap.Total)
	assert.Equal(t, uint64(1), snap.Unparsed)
	assert.Equal(t, uint64(1), snap.Classes["2xx"])
	assert.Equal(t, uint64(1), snap.Classes["4xx"])
	assert.Equal(t, uint64(1), snap.ErrorLevels["error"])
	assert.False(t, snap.Degraded)
}
