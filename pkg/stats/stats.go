// Package stats folds a batch of parsed log records into an immutable
// per-cycle Snapshot. Nothing here survives across cycles: every Snapshot is
// recomputed in full from the current window, which makes log rotation and
// truncation a non-event.
package stats

import (
	"strings"
	"time"

	"github.com/ngxmon/ngxmon/pkg/parser"
	"github.com/ngxmon/ngxmon/pkg/ranking"
	"github.com/ngxmon/ngxmon/pkg/tailread"
)

// ClassSummary counts requests per status class.
type ClassSummary struct {
	Success     uint64 `json:"2xx"`
	Redirect    uint64 `json:"3xx"`
	ClientError uint64 `json:"4xx"`
	ServerError uint64 `json:"5xx"`
}

// Snapshot is the published result of one refresh cycle.
type Snapshot struct {
	Total         uint64               `json:"total_requests"`
	Unparsed      uint64               `json:"unparseable_lines"`
	UniqueClients int                  `json:"unique_clients"`
	Bandwidth     uint64               `json:"total_bandwidth"`
	Classes       ClassSummary         `json:"status_summary"`
	Statuses      map[int]uint64       `json:"status_codes"`
	Methods       map[string]uint64    `json:"methods"`
	Hourly        [24]uint64           `json:"hourly"`
	TopClients    []ranking.Entry      `json:"top_clients"`
	TopPaths      []ranking.Entry      `json:"top_paths"`
	TopAgents     []ranking.Entry      `json:"top_agents"`
	TopReferrers  []ranking.Entry      `json:"top_referrers"`
	ErrorLevels   map[string]uint64    `json:"error_levels"`
	RecentErrors  []parser.ErrorRecord `json:"recent_errors"`
	GeneratedAt   time.Time            `json:"generated_at"`

	// Degraded marks a cycle whose tail read failed; counts are whatever
	// was still readable, never a stale copy of the previous cycle.
	Degraded    bool             `json:"degraded"`
	Failure     tailread.Failure `json:"failure,omitempty"`
	FailurePath string           `json:"failure_path,omitempty"`
}

// Batch carries all records of one cycle into the aggregator.
type Batch struct {
	Access   []parser.AccessRecord
	Unparsed uint64
	Errors   []parser.ErrorRecord
}

// Options control aggregation output sizes and path normalization.
type Options struct {
	TopN         int
	RecentErrors int
	StripQuery   bool
}

func DefaultOptions() Options {
	return Options{TopN: 10, RecentErrors: 50}
}

func newSnapshot() Snapshot {
	return Snapshot{
		Statuses:    make(map[int]uint64),
		Methods:     make(map[string]uint64),
		ErrorLevels: make(map[string]uint64),
		GeneratedAt: time.Now(),
	}
}

// Degraded builds the zeroed snapshot published when the access log could
// not be read this cycle.
func Degraded(kind tailread.Failure, path string) Snapshot {
	snap := newSnapshot()
	snap.Degraded = true
	snap.Failure = kind
	snap.FailurePath = path
	return snap
}

// Aggregate computes a full Snapshot from one batch in a single pass over
// the records.
func Aggregate(b Batch, opt Options) Snapshot {
	if opt.TopN <= 0 {
		opt.TopN = DefaultOptions().TopN
	}
	if opt.RecentErrors <= 0 {
		opt.RecentErrors = DefaultOptions().RecentErrors
	}

	snap := newSnapshot()
	snap.Unparsed = b.Unparsed

	clients := ranking.New()
	paths := ranking.New()
	agents := ranking.New()
	referrers := ranking.New()
	uniq := make(map[string]struct{})

	for _, rec := range b.Access {
		snap.Total++
		snap.Bandwidth += rec.Size
		uniq[rec.Client] = struct{}{}

		switch rec.Status / 100 {
		case 2:
			snap.Classes.Success++
		case 3:
			snap.Classes.Redirect++
		case 4:
			snap.Classes.ClientError++
		case 5:
			snap.Classes.ServerError++
		}
		snap.Statuses[rec.Status]++
		snap.Methods[rec.Method]++
		// Bucket by the record's own timestamp, not wall clock.
		snap.Hourly[rec.Time.Hour()]++

		path := rec.Path
		if opt.StripQuery {
			if i := strings.IndexByte(path, '?'); i != -1 {
				path = path[:i]
			}
		}
		clients.Add(rec.Client, 1, rec.Size)
		paths.Add(path, 1, rec.Size)
		agents.Add(SimplifyAgent(rec.Agent), 1, 0)
		if rec.Referrer != "" {
			referrers.Add(rec.Referrer, 1, 0)
		}
	}
	snap.UniqueClients = len(uniq)
	snap.TopClients = clients.Top(opt.TopN)
	snap.TopPaths = paths.Top(opt.TopN)
	snap.TopAgents = agents.Top(opt.TopN)
	snap.TopReferrers = referrers.Top(opt.TopN)

	for _, rec := range b.Errors {
		snap.ErrorLevels[rec.Level.String()]++
	}
	// Most recent first; tail windows arrive in chronological order.
	n := min(opt.RecentErrors, len(b.Errors))
	for i := 0; i < n; i++ {
		snap.RecentErrors = append(snap.RecentErrors, b.Errors[len(b.Errors)-1-i])
	}

	return snap
}

const maxRawAgentLen = 30

// SimplifyAgent buckets a raw user-agent string into a browser or bot
// family so the ranking is not fragmented by version strings.
func SimplifyAgent(agent string) string {
	if agent == "" {
		return "Empty"
	}
	lower := strings.ToLower(agent)
	switch {
	case strings.Contains(lower, "googlebot"):
		return "Googlebot"
	case strings.Contains(lower, "bingbot"):
		return "Bingbot"
	case strings.Contains(lower, "bot"), strings.Contains(lower, "crawler"), strings.Contains(lower, "spider"):
		return "Other Bot"
	case strings.Contains(lower, "curl"):
		return "curl"
	case strings.Contains(lower, "wget"):
		return "wget"
	case strings.Contains(lower, "python"):
		return "Python"
	case strings.Contains(lower, "edge"), strings.Contains(lower, "edg/"):
		return "Edge"
	case strings.Contains(lower, "firefox"):
		return "Firefox"
	case strings.Contains(lower, "chrome"):
		return "Chrome"
	case strings.Contains(lower, "safari"):
		return "Safari"
	case strings.Contains(lower, "opera"):
		return "Opera"
	}
	if len(agent) > maxRawAgentLen {
		return agent[:maxRawAgentLen] + "..."
	}
	return agent
}
