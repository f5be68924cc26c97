package tui

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ngxmon/ngxmon/pkg/parser"
	"github.com/ngxmon/ngxmon/pkg/ranking"
	"github.com/ngxmon/ngxmon/pkg/stats"
)

// RenderOptions carry the controller state the dashboard header shows.
// ActiveConns maps client address to established connection count; nil
// hides the column.
type RenderOptions struct {
	Interval    time.Duration
	Paused      bool
	ActiveConns map[string]int
}

const (
	barWidth      = 30
	maxMessageLen = 80
	maxErrorLines = 5
)

// Render writes the full dashboard for one snapshot.
func Render(w io.Writer, snap stats.Snapshot, opt RenderOptions) error {
	if snap.GeneratedAt.IsZero() {
		fmt.Fprintln(w, "Waiting for the first refresh cycle...")
		return nil
	}

	state := "running"
	if opt.Paused {
		state = color.YellowString("paused")
	}
	fmt.Fprintf(w, "ngxmon  %s  refresh %s  [%s]\n",
		snap.GeneratedAt.Format(time.DateTime), opt.Interval, state)
	if snap.Degraded {
		color.New(color.FgRed, color.Bold).Fprintf(w, "DEGRADED: cannot read %s (%s)\n",
			snap.FailurePath, snap.Failure)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Requests: %s   Clients: %s   Bandwidth: %s   Unparseable: %s\n",
		humanize.Comma(int64(snap.Total)),
		humanize.Comma(int64(snap.UniqueClients)),
		humanize.IBytes(snap.Bandwidth),
		humanize.Comma(int64(snap.Unparsed)))
	fmt.Fprintf(w, "%s %d   %s %d   %s %d   %s %d\n\n",
		color.GreenString("2xx"), snap.Classes.Success,
		color.CyanString("3xx"), snap.Classes.Redirect,
		color.YellowString("4xx"), snap.Classes.ClientError,
		color.RedString("5xx"), snap.Classes.ServerError)

	renderMethods(w, snap)
	renderStatuses(w, snap)
	renderHourly(w, snap)

	if err := renderClients(w, snap.TopClients, opt.ActiveConns); err != nil {
		return err
	}
	if err := renderEntries(w, "Top paths", "Path", snap.TopPaths, true); err != nil {
		return err
	}
	if err := renderEntries(w, "Top user agents", "Agent", snap.TopAgents, false); err != nil {
		return err
	}
	if err := renderEntries(w, "Top referrers", "Referrer", snap.TopReferrers, false); err != nil {
		return err
	}
	renderErrors(w, snap)
	return nil
}

func renderMethods(w io.Writer, snap stats.Snapshot) {
	if len(snap.Methods) == 0 {
		return
	}
	fmt.Fprintln(w, "Methods")
	max := maxValue(maps.Values(snap.Methods))
	for _, m := range slices.Sorted(maps.Keys(snap.Methods)) {
		fmt.Fprintf(w, "  %-8s %8d %s\n", m, snap.Methods[m], bar(snap.Methods[m], max, barWidth))
	}
	fmt.Fprintln(w)
}

func renderStatuses(w io.Writer, snap stats.Snapshot) {
	if len(snap.Statuses) == 0 {
		return
	}
	fmt.Fprintln(w, "Status codes")
	max := maxValue(maps.Values(snap.Statuses))
	for _, code := range slices.Sorted(maps.Keys(snap.Statuses)) {
		n := snap.Statuses[code]
		fmt.Fprintf(w, "  %s %-22s %8d %s\n",
			statusColor(code).Sprintf("%3d", code), http.StatusText(code), n, bar(n, max, barWidth))
	}
	fmt.Fprintln(w)
}

func renderHourly(w io.Writer, snap stats.Snapshot) {
	max := maxValue(slices.Values(snap.Hourly[:]))
	if max == 0 {
		return
	}
	fmt.Fprintln(w, "Requests by hour")
	for h, n := range snap.Hourly {
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "  %02d:00 %8d %s\n", h, n, bar(n, max, barWidth))
	}
	fmt.Fprintln(w)
}

func renderClients(w io.Writer, entries []ranking.Entry, conns map[string]int) error {
	if len(entries) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Top clients")
	table := newTable(w)
	if conns != nil {
		table.Header("Client", "Requests", "Bytes", "Active")
	} else {
		table.Header("Client", "Requests", "Bytes")
	}
	for _, e := range entries {
		row := []string{e.Key, strconv.FormatUint(e.Weight, 10), humanize.IBytes(e.Bytes)}
		if conns != nil {
			row = append(row, strconv.Itoa(conns[e.Key]))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func renderEntries(w io.Writer, title, keyHeader string, entries []ranking.Entry, showBytes bool) error {
	if len(entries) == 0 {
		return nil
	}
	fmt.Fprintln(w, title)
	table := newTable(w)
	if showBytes {
		table.Header(keyHeader, "Hits", "Bytes")
	} else {
		table.Header(keyHeader, "Hits")
	}
	for _, e := range entries {
		row := []string{truncate(e.Key, maxMessageLen), strconv.FormatUint(e.Weight, 10)}
		if showBytes {
			row = append(row, humanize.IBytes(e.Bytes))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func renderErrors(w io.Writer, snap stats.Snapshot) {
	if len(snap.ErrorLevels) == 0 && len(snap.RecentErrors) == 0 {
		return
	}
	fmt.Fprint(w, "Error log:")
	for _, lvl := range parser.Levels() {
		if n := snap.ErrorLevels[lvl.String()]; n > 0 {
			fmt.Fprintf(w, "  %s %d", levelColor(lvl).Sprint(lvl.String()), n)
		}
	}
	fmt.Fprintln(w)
	for i, rec := range snap.RecentErrors {
		if i == maxErrorLines {
			fmt.Fprintf(w, "  ... %d more\n", len(snap.RecentErrors)-maxErrorLines)
			break
		}
		line := fmt.Sprintf("  %s %s %s",
			rec.Time.Format(time.DateTime), levelColor(rec.Level).Sprintf("[%s]", rec.Level), truncate(rec.Message, maxMessageLen))
		if rec.Client != "" {
			line += fmt.Sprintf(" (client: %s)", rec.Client)
		}
		fmt.Fprintln(w, line)
	}
}

// newTable matches the plain, borderless layout used across the CLI.
func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(
		w,
		tablewriter.WithHeaderAutoWrap(tw.WrapNone),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithPadding(tw.Padding{
			Right:     "  ",
			Overwrite: true,
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
	)
}

func statusColor(code int) *color.Color {
	switch code / 100 {
	case 2:
		return color.New(color.FgGreen)
	case 3:
		return color.New(color.FgCyan)
	case 4:
		return color.New(color.FgYellow)
	case 5:
		return color.New(color.FgRed)
	}
	return color.New(color.FgWhite)
}

func levelColor(lvl parser.Level) *color.Color {
	switch lvl {
	case parser.LevelEmerg, parser.LevelAlert, parser.LevelCrit, parser.LevelError:
		return color.New(color.FgRed)
	case parser.LevelWarn:
		return color.New(color.FgYellow)
	case parser.LevelNotice, parser.LevelInfo:
		return color.New(color.FgCyan)
	}
	return color.New(color.FgWhite)
}

// bar scales count against max into a fixed-width gauge. A non-zero count
// always gets at least one cell.
func bar(count, max uint64, width int) string {
	if max == 0 || count == 0 {
		return ""
	}
	n := int(count * uint64(width) / max)
	if n == 0 {
		n = 1
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = '#'
	}
	return string(out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func maxValue(seq iter.Seq[uint64]) uint64 {
	var max uint64
	for v := range seq {
		if v > max {
			max = v
		}
	}
	return max
}
