package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngxmon/ngxmon/pkg/parser"
	"github.com/ngxmon/ngxmon/pkg/tailread"
)

func accessBatch(t *testing.T, lines []string) Batch {
	t.Helper()
	var b Batch
	for _, line := range lines {
		rec, err := parser.ParseAccess([]byte(line))
		if err != nil {
			b.Unparsed++
			continue
		}
		b.Access = append(b.Access, rec)
	}
	return b
}

func TestAggregateScenario(t *testing.T) {
	b := accessBatch(t, []string{
		`10.0.0.1 - - [01/Jan/2025:00:00:00 +0000] "GET /a HTTP/1.1" 200 100 "-" "-"`,
		`10.0.0.1 - - [01/Jan/2025:00:00:01 +0000] "GET /b HTTP/1.1" 404 50 "-" "-"`,
		`not a log line`,
	})
	snap := Aggregate(b, DefaultOptions())

	assert.Equal(t, uint64(2), snap.Total)
	assert.Equal(t, uint64(1), snap.Unparsed)
	assert.Equal(t, 1, snap.UniqueClients)
	assert.Equal(t, uint64(150), snap.Bandwidth)
	assert.Equal(t, uint64(1), snap.Classes.Success)
	assert.Equal(t, uint64(1), snap.Classes.ClientError)
	assert.Equal(t, uint64(1), snap.Statuses[200])
	assert.Equal(t, uint64(1), snap.Statuses[404])
	assert.Equal(t, uint64(2), snap.Methods["GET"])
	assert.Equal(t, uint64(2), snap.Hourly[0])

	require.Len(t, snap.TopPaths, 2)
	// Tie on hit count breaks by first-seen order.
	assert.Equal(t, "/a", snap.TopPaths[0].Key)
	assert.Equal(t, "/b", snap.TopPaths[1].Key)
	assert.Equal(t, uint64(100), snap.TopPaths[0].Bytes)

	require.Len(t, snap.TopClients, 1)
	assert.Equal(t, "10.0.0.1", snap.TopClients[0].Key)
	assert.Equal(t, uint64(2), snap.TopClients[0].Weight)
	assert.False(t, snap.Degraded)
}

func TestAggregateUnparseableIdempotence(t *testing.T) {
	base := accessBatch(t, []string{
		`10.0.0.1 - - [01/Jan/2025:00:00:00 +0000] "GET /a HTTP/1.1" 200 100 "-" "-"`,
	})
	withNoise := base
	withNoise.Unparsed += 5

	clean := Aggregate(base, DefaultOptions())
	noisy := Aggregate(withNoise, DefaultOptions())

	// Only the unparseable counter may differ.
	assert.Equal(t, clean.Unparsed+5, noisy.Unparsed)
	noisy.Unparsed = clean.Unparsed
	noisy.GeneratedAt = clean.GeneratedAt
	assert.Equal(t, clean, noisy)
}

func TestAggregateHistogramConservation(t *testing.T) {
	lines := []string{`junk line`}
	for i := 0; i < 40; i++ {
		status := []int{200, 301, 403, 502}[i%4]
		method := []string{"GET", "POST", "PUT"}[i%3]
		lines = append(lines, fmt.Sprintf(
			`10.0.0.%d - - [01/Jan/2025:%02d:00:00 +0000] "%s /p%d HTTP/1.1" %d 10 "-" "-"`,
			i%7, i%24, method, i%5, status))
	}
	snap := Aggregate(accessBatch(t, lines), DefaultOptions())

	classSum := snap.Classes.Success + snap.Classes.Redirect + snap.Classes.ClientError + snap.Classes.ServerError
	assert.Equal(t, snap.Total, classSum)

	var methodSum, statusSum, hourSum uint64
	for _, c := range snap.Methods {
		methodSum += c
	}
	for _, c := range snap.Statuses {
		statusSum += c
	}
	for _, c := range snap.Hourly {
		hourSum += c
	}
	assert.Equal(t, snap.Total, methodSum)
	assert.Equal(t, snap.Total, statusSum)
	assert.Equal(t, snap.Total, hourSum)
}

func TestAggregateHourlyUsesRecordTime(t *testing.T) {
	b := accessBatch(t, []string{
		`10.0.0.1 - - [01/Jan/2025:23:59:59 +0000] "GET /a HTTP/1.1" 200 1 "-" "-"`,
		`10.0.0.1 - - [02/Jan/2025:00:00:01 +0000] "GET /a HTTP/1.1" 200 1 "-" "-"`,
	})
	snap := Aggregate(b, DefaultOptions())

	assert.Equal(t, uint64(1), snap.Hourly[23])
	assert.Equal(t, uint64(1), snap.Hourly[0])
}

func TestAggregateStripQuery(t *testing.T) {
	b := accessBatch(t, []string{
		`10.0.0.1 - - [01/Jan/2025:00:00:00 +0000] "GET /search?q=one HTTP/1.1" 200 10 "-" "-"`,
		`10.0.0.1 - - [01/Jan/2025:00:00:01 +0000] "GET /search?q=two HTTP/1.1" 200 10 "-" "-"`,
	})

	opt := DefaultOptions()
	opt.StripQuery = true
	snap := Aggregate(b, opt)
	require.Len(t, snap.TopPaths, 1)
	assert.Equal(t, "/search", snap.TopPaths[0].Key)
	assert.Equal(t, uint64(2), snap.TopPaths[0].Weight)

	snap = Aggregate(b, DefaultOptions())
	assert.Len(t, snap.TopPaths, 2)
}

func TestAggregateReferrers(t *testing.T) {
	b := accessBatch(t, []string{
		`10.0.0.1 - - [01/Jan/2025:00:00:00 +0000] "GET /a HTTP/1.1" 200 1 "https://x.example/" "-"`,
		`10.0.0.1 - - [01/Jan/2025:00:00:01 +0000] "GET /a HTTP/1.1" 200 1 "-" "-"`,
	})
	snap := Aggregate(b, DefaultOptions())

	// The "-" placeholder never counts as a referrer.
	require.Len(t, snap.TopReferrers, 1)
	assert.Equal(t, "https://x.example/", snap.TopReferrers[0].Key)
}

func TestAggregateErrors(t *testing.T) {
	var b Batch
	for i := 0; i < 60; i++ {
		line := fmt.Sprintf(`2025/01/21 09:%02d:00 [error] 1#1: message %d`, i%60, i)
		rec, err := parser.ParseError([]byte(line))
		require.NoError(t, err)
		b.Errors = append(b.Errors, rec)
	}
	warn, err := parser.ParseError([]byte(`2025/01/21 10:00:00 [warn] 1#1: last one`))
	require.NoError(t, err)
	b.Errors = append(b.Errors, warn)

	snap := Aggregate(b, DefaultOptions())
	assert.Equal(t, uint64(60), snap.ErrorLevels["error"])
	assert.Equal(t, uint64(1), snap.ErrorLevels["warn"])

	// Capped at RecentErrors, most recent first.
	require.Len(t, snap.RecentErrors, DefaultOptions().RecentErrors)
	assert.Equal(t, "last one", snap.RecentErrors[0].Message)
	assert.Equal(t, "message 59", snap.RecentErrors[1].Message)
}

func TestDegradedSnapshot(t *testing.T) {
	snap := Degraded(tailread.FailurePermission, "/var/log/nginx/access.log")

	assert.True(t, snap.Degraded)
	assert.Equal(t, tailread.FailurePermission, snap.Failure)
	assert.Equal(t, "/var/log/nginx/access.log", snap.FailurePath)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Bandwidth)
	assert.Empty(t, snap.TopClients)
	assert.WithinDuration(t, time.Now(), snap.GeneratedAt, time.Minute)
}

func TestSimplifyAgent(t *testing.T) {
	cases := map[string]string{
		"":    "Empty",
		"Mozilla/5.0 (compatible; Googlebot/2.1)":  "Googlebot",
		"Mozilla/5.0 (compatible; bingbot/2.0)":    "Bingbot",
		"SomeCrawler/1.0":                          "Other Bot",
		"curl/8.5.0":                               "curl",
		"Wget/1.21":                                "wget",
		"python-requests/2.31":                     "Python",
		"Mozilla/5.0 Gecko/20100101 Firefox/121.0": "Firefox",
		"Mozilla/5.0 AppleWebKit Chrome/120.0":     "Chrome",
		"Mozilla/5.0 Version/17.0 Safari/605.1":    "Safari",
		"short-agent":                              "short-agent",
	}
	for agent, want := range cases {
		assert.Equal(t, want, SimplifyAgent(agent), "agent %q", agent)
	}

	long := "X-Custom-Client/1.0 with a very long trailing identifier"
	assert.Equal(t, long[:30]+"...", SimplifyAgent(long))
}
