// Package engine drives the refresh loop: every tick it re-tails the
// configured logs, parses the window, aggregates a fresh Snapshot and
// publishes it into a single latest-snapshot slot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ngxmon/ngxmon/pkg/parser"
	"github.com/ngxmon/ngxmon/pkg/stats"
	"github.com/ngxmon/ngxmon/pkg/tailread"
)

// State of the refresh controller.
type State int

const (
	StateRunning State = iota
	StatePaused
)

// Intervals enumerates the refresh intervals the controller accepts.
var Intervals = []time.Duration{
	time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

type Config struct {
	AccessLog   string
	ErrorLog    string
	Window      int
	ErrorWindow int
	Interval    time.Duration
	TopN        int
	StripQuery  bool
	LogOutput   string
}

func DefaultConfig() Config {
	return Config{
		AccessLog:   "/var/log/nginx/access.log",
		ErrorLog:    "/var/log/nginx/error.log",
		Window:      10000,
		ErrorWindow: 1000,
		Interval:    2 * time.Second,
		TopN:        10,
	}
}

func (c *Config) InstallFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&c.AccessLog, "access-log", "a", c.AccessLog, "Path to the access log")
	flags.StringVarP(&c.ErrorLog, "error-log", "e", c.ErrorLog, "Path to the error log (empty to disable)")
	flags.IntVarP(&c.Window, "window", "w", c.Window, "Max access-log lines read per cycle")
	flags.IntVar(&c.ErrorWindow, "error-window", c.ErrorWindow, "Max error-log lines read per cycle")
	flags.DurationVarP(&c.Interval, "refresh", "r", c.Interval, "Refresh interval (1s, 2s, 5s, 10s or 30s)")
	flags.IntVarP(&c.TopN, "top", "n", c.TopN, "Number of top items per ranking")
	flags.BoolVar(&c.StripQuery, "strip-query", c.StripQuery, "Strip query strings from ranked paths")
	flags.StringVarP(&c.LogOutput, "outlog", "o", c.LogOutput, "Engine log output file")
}

func (c Config) validate() error {
	if c.AccessLog == "" {
		return errors.New("access log path is required")
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %d", c.Window)
	}
	if c.ErrorLog != "" && c.ErrorWindow <= 0 {
		return fmt.Errorf("error window must be positive, got %d", c.ErrorWindow)
	}
	if !slices.Contains(Intervals, c.Interval) {
		return fmt.Errorf("invalid refresh interval %s", c.Interval)
	}
	return nil
}

// Engine owns the cycle state: interval, paused flag and the latest
// published snapshot. All other per-cycle data is rebuilt from scratch.
type Engine struct {
	cfg    Config
	logger *log.Logger

	mu       sync.RWMutex
	snapshot stats.Snapshot
	interval time.Duration
	state    State

	updates chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New validates the configuration and builds an Engine in the Running
// state. Configuration errors are the only fatal errors this package
// produces; everything after startup degrades the snapshot instead.
func New(c Config) (*Engine, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)
	if c.LogOutput != "" {
		f, err := os.OpenFile(c.LogOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file error: %w", err)
		}
		logger.SetOutput(f)
	}
	return &Engine{
		cfg:      c,
		logger:   logger,
		interval: c.Interval,
		updates:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the refresh loop. The first cycle runs immediately rather
// than waiting a full interval.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.loop(ctx)
}

// Shutdown stops the loop and waits for an in-flight cycle to finish.
func (e *Engine) Shutdown() {
	e.once.Do(func() { close(e.done) })
	e.wg.Wait()
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	e.RefreshNow(ctx)
	ticker := time.NewTicker(e.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticker.C:
			e.onTick(ctx)
			// Interval changes take effect on the next scheduled tick.
			ticker.Reset(e.Interval())
		}
	}
}

// onTick runs a cycle unless the controller is paused.
func (e *Engine) onTick(ctx context.Context) {
	if e.State() == StateRunning {
		e.RefreshNow(ctx)
	}
}

// RefreshNow runs one cycle synchronously and publishes its snapshot. It
// works in any state, including Paused.
func (e *Engine) RefreshNow(ctx context.Context) {
	snap := e.cycle()
	select {
	case <-ctx.Done():
		// Shutting down mid-cycle: leave the published slot untouched.
		return
	default:
	}
	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

func (e *Engine) cycle() stats.Snapshot {
	var (
		accessLines, errorLines []string
		accessErr, errorErr     error
	)
	var g errgroup.Group
	g.Go(func() error {
		accessLines, accessErr = tailread.Tail(e.cfg.AccessLog, e.cfg.Window)
		return accessErr
	})
	if e.cfg.ErrorLog != "" {
		g.Go(func() error {
			errorLines, errorErr = tailread.Tail(e.cfg.ErrorLog, e.cfg.ErrorWindow)
			return errorErr
		})
	}
	// Both reads always run to completion; errors are handled per file.
	_ = g.Wait()

	if accessErr != nil {
		e.logger.Printf("tail %s: %v", e.cfg.AccessLog, accessErr)
		return stats.Degraded(tailread.Classify(accessErr), e.cfg.AccessLog)
	}

	var batch stats.Batch
	for _, line := range accessLines {
		if line == "" {
			continue
		}
		rec, err := parser.ParseAccess([]byte(line))
		if err != nil {
			batch.Unparsed++
			continue
		}
		batch.Access = append(batch.Access, rec)
	}
	if errorErr == nil {
		for _, line := range errorLines {
			rec, err := parser.ParseError([]byte(line))
			if err != nil {
				// Continuation and non-standard lines in the error log are
				// expected; they are skipped rather than counted.
				continue
			}
			batch.Errors = append(batch.Errors, rec)
		}
	}

	snap := stats.Aggregate(batch, stats.Options{
		TopN:       e.cfg.TopN,
		StripQuery: e.cfg.StripQuery,
	})
	if errorErr != nil {
		e.logger.Printf("tail %s: %v", e.cfg.ErrorLog, errorErr)
		snap.Degraded = true
		snap.Failure = tailread.Classify(errorErr)
		snap.FailurePath = e.cfg.ErrorLog
	}
	return snap
}

// Latest returns the most recently published snapshot. Before the first
// cycle completes it returns an empty snapshot with a zero GeneratedAt.
func (e *Engine) Latest() stats.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Updates signals snapshot publications. The channel is never closed and
// drops signals when the consumer lags; poll Latest for the data.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

func (e *Engine) Pause() {
	e.mu.Lock()
	e.state = StatePaused
	e.mu.Unlock()
}

func (e *Engine) Resume() {
	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Interval() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.interval
}

// SetInterval changes the refresh interval; the change applies from the
// next scheduled tick.
func (e *Engine) SetInterval(d time.Duration) error {
	if !slices.Contains(Intervals, d) {
		return fmt.Errorf("invalid refresh interval %s", d)
	}
	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()
	return nil
}
