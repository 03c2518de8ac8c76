// Package aggregate fans one bar fetch per symbol out across a bounded
// worker pool and collects the results as they complete.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/pricing"
)

// DefaultWorkers bounds concurrent fetches. The bound exists to stay
// inside the data provider's request-rate limits, not to match CPUs.
const DefaultWorkers = 5

// Request describes one batch of symbols over a shared range.
type Request struct {
	Symbols     []string
	Start       time.Time
	End         time.Time
	Granularity alpaca.Granularity
}

// Validate checks the batch before any fetch work begins.
func (r Request) Validate() error {
	if len(NormalizeSymbols(r.Symbols)) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("start must be before end")
	}
	if err := r.Granularity.Valid(); err != nil {
		return err
	}
	return nil
}

// ParseSymbols splits comma-separated free text into a clean symbol
// list. "aapl, msft,,aapl" becomes ["AAPL", "MSFT"].
func ParseSymbols(s string) []string {
	return NormalizeSymbols(strings.Split(s, ","))
}

// NormalizeSymbols trims, uppercases, and deduplicates, preserving
// first-seen order. Blank entries are dropped.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Warning records a symbol whose fetch failed. The batch keeps going;
// the failed symbol simply contributes no series.
type Warning struct {
	Symbol string
	Err    error
}

// Result maps each symbol that returned data to its series. Symbols
// whose fetch failed appear in Warnings; symbols with no data for the
// range appear nowhere, an absence rather than a failure.
type Result struct {
	Series    map[string]pricing.BarSeries
	Warnings  []Warning
	Requested []string // normalized symbol list, submission order
}

// Symbols lists the symbols that returned data, sorted for
// deterministic iteration.
func (r Result) Symbols() []string {
	out := make([]string, 0, len(r.Series))
	for s := range r.Series {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether no symbol returned any data.
func (r Result) Empty() bool { return len(r.Series) == 0 }

// Aggregator runs batches of fetches. The zero value is not usable;
// set Fetcher at minimum.
type Aggregator struct {
	Fetcher alpaca.Fetcher
	Workers int // concurrent fetch bound, default DefaultWorkers

	// OnProgress, when set, is called after each symbol completes.
	// completed/total is a non-decreasing fraction that reaches
	// exactly 1.0 when the last fetch lands.
	OnProgress func(completed, total int)

	// Logf, when set, receives per-symbol warnings.
	Logf func(format string, args ...any)
}

// New returns an aggregator over the given fetcher with defaults.
func New(fetcher alpaca.Fetcher) *Aggregator {
	return &Aggregator{Fetcher: fetcher, Workers: DefaultWorkers}
}

type outcome struct {
	symbol string
	series pricing.BarSeries
	err    error
}

// Fetch retrieves bars for every symbol in the request. Fetches run
// concurrently, bounded by Workers, and results are consumed in
// completion order. One failing symbol never aborts the batch.
//
// On cancellation the returned error is the context's and the Result
// holds every symbol that completed before the interrupt; partial
// results are valid.
func (a *Aggregator) Fetch(ctx context.Context, req Request) (Result, error) {
	symbols := NormalizeSymbols(req.Symbols)
	res := Result{
		Series:    make(map[string]pricing.BarSeries, len(symbols)),
		Requested: symbols,
	}

	if err := req.Validate(); err != nil {
		return res, err
	}

	total := len(symbols)
	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, total)

	jobs := make(chan string, total)
	for _, s := range symbols {
		jobs <- s
	}
	close(jobs)

	results := make(chan outcome)

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for symbol := range jobs {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				series, err := a.Fetcher.GetBars(gctx, alpaca.BarsRequest{
					Symbol:      symbol,
					Start:       req.Start,
					End:         req.End,
					Granularity: req.Granularity,
				})

				select {
				case results <- outcome{symbol: symbol, series: series, err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	// Accumulation happens only here, on the consuming side of the
	// results channel, so the map needs no lock.
	completed := 0
	for out := range results {
		completed++
		switch {
		case errors.Is(out.err, context.Canceled):
			// interrupted run, not a symbol failure
		case out.err != nil:
			res.Warnings = append(res.Warnings, Warning{Symbol: out.symbol, Err: out.err})
			a.logf("[WARN] fetch %s: %v", out.symbol, out.err)
		case out.series.Empty():
			// no data for the range is an absence, not a failure
		default:
			res.Series[out.symbol] = out.series
		}
		a.progress(completed, total)
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	// Workers can drain cleanly even when the caller canceled mid-run;
	// report the interrupt either way.
	return res, ctx.Err()
}

func (a *Aggregator) logf(format string, args ...any) {
	if a.Logf != nil {
		a.Logf(format, args...)
	}
}

func (a *Aggregator) progress(completed, total int) {
	if a.OnProgress != nil {
		a.OnProgress(completed, total)
	}
}
