// Package dashboard orchestrates a full analysis run: fetch every
// requested symbol, derive per-symbol columns, build the cross-symbol
// comparison table, and record the run in the journal.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/marketdash/aggregate"
	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/analyze"
	"github.com/rustyeddy/marketdash/journal"
	"github.com/rustyeddy/marketdash/pkg/id"
	"github.com/rustyeddy/marketdash/pricing"
)

// ErrNoData is returned when no requested symbol yields any bars.
// Callers should report it as "no data", not as a crash.
var ErrNoData = errors.New("no data returned for any requested symbol")

// RunRequest describes one analysis run.
type RunRequest struct {
	Symbols     []string
	Start       time.Time
	End         time.Time
	Granularity alpaca.Granularity
	Window      int // moving-average window, 0 means analyze.DefaultWindow
}

// RunResult carries everything a presentation layer needs from one
// run.
type RunResult struct {
	RunID      string
	Request    RunRequest
	Requested  []string // normalized symbol list
	Series     map[string]pricing.BarSeries
	Derived    map[string]analyze.Derived
	Normalized analyze.Normalized
	Stats      map[string]analyze.Stats
	Warnings   []aggregate.Warning
	Elapsed    time.Duration
}

// Symbols lists the symbols that returned data, sorted.
func (r RunResult) Symbols() []string {
	out := make([]string, 0, len(r.Derived))
	for s := range r.Derived {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Runner wires the collaborators for analysis runs. Fetcher is
// required; everything else is optional.
type Runner struct {
	Fetcher alpaca.Fetcher
	Journal journal.Journal // run records, best effort
	Workers int

	OnProgress func(completed, total int)
	Logf       func(format string, args ...any)
}

// New returns a runner over the given fetcher with defaults.
func New(fetcher alpaca.Fetcher) *Runner {
	return &Runner{Fetcher: fetcher, Workers: aggregate.DefaultWorkers}
}

// Run executes one analysis run:
//  1. validate the window and the batch request
//  2. fetch all symbols concurrently
//  3. derive returns and the moving average per symbol
//  4. normalize closes to base 100 for comparison
//  5. record the run in the journal
//
// A run with zero usable symbols returns ErrNoData. Journal failures
// are logged and swallowed; losing a run record must not lose the run.
func (r *Runner) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if r.Fetcher == nil {
		return RunResult{}, fmt.Errorf("dashboard: Fetcher is required")
	}

	if req.Window == 0 {
		req.Window = analyze.DefaultWindow
	}
	window := req.Window
	if window < analyze.MinWindow || window > analyze.MaxWindow {
		return RunResult{}, fmt.Errorf("window must be between %d and %d, got %d",
			analyze.MinWindow, analyze.MaxWindow, window)
	}

	agg := &aggregate.Aggregator{
		Fetcher:    r.Fetcher,
		Workers:    r.Workers,
		OnProgress: r.OnProgress,
		Logf:       r.Logf,
	}

	started := time.Now()
	res, err := agg.Fetch(ctx, aggregate.Request{
		Symbols:     req.Symbols,
		Start:       req.Start,
		End:         req.End,
		Granularity: req.Granularity,
	})

	out := RunResult{
		Request:   req,
		Requested: res.Requested,
		Series:    res.Series,
		Warnings:  res.Warnings,
		Elapsed:   time.Since(started),
	}
	if err != nil {
		return out, err
	}
	if res.Empty() {
		return out, ErrNoData
	}

	out.Derived = make(map[string]analyze.Derived, len(res.Series))
	out.Stats = make(map[string]analyze.Stats, len(res.Series))
	for symbol, series := range res.Series {
		d, err := analyze.Derive(series, window)
		if err != nil {
			return out, fmt.Errorf("derive %s: %w", symbol, err)
		}
		out.Derived[symbol] = d
		out.Stats[symbol] = analyze.Summarize(d)
	}
	out.Normalized = analyze.Normalize(res.Series)

	out.RunID = id.New()
	out.Elapsed = time.Since(started)
	r.record(out, window)

	return out, nil
}

func (r *Runner) record(res RunResult, window int) {
	if r.Journal == nil {
		return
	}

	rec := journal.RunRecord{
		RunID:       res.RunID,
		Time:        time.Now(),
		Symbols:     strings.Join(res.Requested, ","),
		RangeStart:  res.Request.Start,
		RangeEnd:    res.Request.End,
		Granularity: string(res.Request.Granularity),
		Window:      window,
		WithData:    len(res.Series),
		Warnings:    len(res.Warnings),
		Elapsed:     res.Elapsed,
	}
	if err := r.Journal.RecordRun(rec); err != nil {
		r.logf("[WARN] record run %s: %v", res.RunID, err)
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}
