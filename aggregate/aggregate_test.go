package aggregate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/pricing"
)

// stubFetcher serves canned series, errors, or blocks until the
// context is canceled, and records every call.
type stubFetcher struct {
	data  map[string]pricing.BarSeries
	fail  map[string]error
	block map[string]bool
	delay time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *stubFetcher) GetBars(ctx context.Context, req alpaca.BarsRequest) (pricing.BarSeries, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Symbol)
	f.mu.Unlock()

	if f.block[req.Symbol] {
		<-ctx.Done()
		return pricing.BarSeries{Symbol: req.Symbol}, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.fail[req.Symbol]; ok {
		return pricing.BarSeries{Symbol: req.Symbol}, err
	}
	if s, ok := f.data[req.Symbol]; ok {
		return s, nil
	}
	return pricing.BarSeries{Symbol: req.Symbol}, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func seriesOf(symbol string, closes ...float64) pricing.BarSeries {
	s := pricing.BarSeries{Symbol: symbol}
	for i, c := range closes {
		s.Bars = append(s.Bars, pricing.Bar{
			Time:  time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC),
			Close: c,
		})
	}
	return s
}

func dailyRequest(symbols ...string) Request {
	return Request{
		Symbols:     symbols,
		Start:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Granularity: alpaca.Day,
	}
}

func TestFetchCollectsAllSymbols(t *testing.T) {
	fake := &stubFetcher{data: map[string]pricing.BarSeries{
		"AAPL": seriesOf("AAPL", 185.64, 184.25),
		"MSFT": seriesOf("MSFT", 370.87, 370.60),
	}}
	agg := New(fake)

	res, err := agg.Fetch(context.Background(), dailyRequest("aapl", "msft", "nodata"))
	require.NoError(t, err)

	// Keys are exactly the symbols that returned rows
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols())
	assert.Equal(t, []string{"AAPL", "MSFT", "NODATA"}, res.Requested)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.Series["AAPL"].Len())
}

func TestFetchFailedSymbolWarnsAndContinues(t *testing.T) {
	fake := &stubFetcher{
		data: map[string]pricing.BarSeries{
			"AAPL": seriesOf("AAPL", 185.64, 184.25),
		},
		fail: map[string]error{
			"ZZZZ": fmt.Errorf("get bars ZZZZ: invalid symbol"),
		},
	}

	var logged []string
	agg := New(fake)
	agg.Logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	res, err := agg.Fetch(context.Background(), dailyRequest("AAPL", "ZZZZ"))
	require.NoError(t, err, "one failing symbol must not abort the batch")

	assert.Equal(t, []string{"AAPL"}, res.Symbols())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "ZZZZ", res.Warnings[0].Symbol)
	assert.Contains(t, res.Warnings[0].Err.Error(), "invalid symbol")

	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "[WARN]")
	assert.Contains(t, logged[0], "ZZZZ")
}

func TestFetchEmptySeriesDroppedWithoutWarning(t *testing.T) {
	fake := &stubFetcher{data: map[string]pricing.BarSeries{
		"AAPL": seriesOf("AAPL", 185.64),
	}}
	agg := New(fake)

	res, err := agg.Fetch(context.Background(), dailyRequest("AAPL", "ZZZZ"))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, res.Symbols())
	assert.Empty(t, res.Warnings, "no data for the range is not a failure")
}

func TestFetchAllEmptyIsNotAnError(t *testing.T) {
	agg := New(&stubFetcher{})

	res, err := agg.Fetch(context.Background(), dailyRequest("AAA", "BBB"))
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Warnings)
}

func TestFetchProgress(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F", "G"}
	fake := &stubFetcher{delay: time.Millisecond}

	type tick struct{ completed, total int }
	var ticks []tick

	agg := New(fake)
	agg.Workers = 3
	// OnProgress runs on the consuming goroutine, so appending
	// without a lock is safe.
	agg.OnProgress = func(completed, total int) {
		ticks = append(ticks, tick{completed, total})
	}

	_, err := agg.Fetch(context.Background(), dailyRequest(symbols...))
	require.NoError(t, err)

	require.Len(t, ticks, len(symbols))
	prev := 0.0
	for _, tk := range ticks {
		assert.Equal(t, len(symbols), tk.total)
		frac := float64(tk.completed) / float64(tk.total)
		assert.GreaterOrEqual(t, frac, prev, "progress must never go backwards")
		prev = frac
	}
	last := ticks[len(ticks)-1]
	assert.Equal(t, 1.0, float64(last.completed)/float64(last.total),
		"progress must land exactly on 1.0 after the final completion")
}

func TestFetchValidation(t *testing.T) {
	fake := &stubFetcher{}
	agg := New(fake)
	ctx := context.Background()

	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan10 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     Request
		wantMsg string
	}{
		{
			name:    "no symbols",
			req:     Request{Start: jan1, End: jan10, Granularity: alpaca.Day},
			wantMsg: "at least one symbol is required",
		},
		{
			name:    "blank symbols",
			req:     Request{Symbols: []string{" ", ""}, Start: jan1, End: jan10, Granularity: alpaca.Day},
			wantMsg: "at least one symbol is required",
		},
		{
			name:    "missing dates",
			req:     Request{Symbols: []string{"AAPL"}, Granularity: alpaca.Day},
			wantMsg: "start and end are required",
		},
		{
			name:    "start after end",
			req:     Request{Symbols: []string{"AAPL"}, Start: jan10, End: jan1, Granularity: alpaca.Day},
			wantMsg: "start must be before end",
		},
		{
			name:    "bad granularity",
			req:     Request{Symbols: []string{"AAPL"}, Start: jan1, End: jan10, Granularity: "3Week"},
			wantMsg: "unknown granularity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agg.Fetch(ctx, tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	assert.Equal(t, 0, fake.callCount(), "validation failures must halt before any fetch")
}

func TestFetchDeduplicatesSymbols(t *testing.T) {
	fake := &stubFetcher{data: map[string]pricing.BarSeries{
		"AAPL": seriesOf("AAPL", 185.64),
	}}
	agg := New(fake)

	res, err := agg.Fetch(context.Background(), dailyRequest("AAPL", "aapl", " AAPL "))
	require.NoError(t, err)

	assert.Equal(t, 1, fake.callCount(), "duplicates collapse to one fetch")
	assert.Equal(t, []string{"AAPL"}, res.Requested)
}

func TestFetchBoundedConcurrency(t *testing.T) {
	var mu sync.Mutex
	inflight, peak := 0, 0

	fake := &stubFetcher{delay: 5 * time.Millisecond}
	agg := &Aggregator{Workers: 3}
	agg.Fetcher = fetcherFunc(func(ctx context.Context, req alpaca.BarsRequest) (pricing.BarSeries, error) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()

		series, err := fake.GetBars(ctx, req)

		mu.Lock()
		inflight--
		mu.Unlock()
		return series, err
	})

	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}

	_, err := agg.Fetch(context.Background(), dailyRequest(symbols...))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 3, "in-flight fetches must respect the worker bound")
	assert.Greater(t, peak, 1, "the pool should actually run fetches concurrently")
}

type fetcherFunc func(ctx context.Context, req alpaca.BarsRequest) (pricing.BarSeries, error)

func (f fetcherFunc) GetBars(ctx context.Context, req alpaca.BarsRequest) (pricing.BarSeries, error) {
	return f(ctx, req)
}

func TestFetchCancellationKeepsPartialResult(t *testing.T) {
	fake := &stubFetcher{
		data: map[string]pricing.BarSeries{
			"FAST": seriesOf("FAST", 101.0),
		},
		block: map[string]bool{"SLOW": true},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agg := New(fake)
	agg.Workers = 2
	agg.OnProgress = func(completed, total int) {
		if completed == 1 {
			cancel()
		}
	}

	res, err := agg.Fetch(ctx, dailyRequest("FAST", "SLOW"))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The symbol that finished before the interrupt is intact
	assert.Equal(t, []string{"FAST"}, res.Symbols())
	assert.Empty(t, res.Warnings, "a canceled fetch is not a symbol failure")
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"aapl, msft,,aapl", []string{"AAPL", "MSFT"}},
		{"AAPL", []string{"AAPL"}},
		{" spy , qqq ", []string{"SPY", "QQQ"}},
		{",,,", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSymbols(tt.in), "input %q", tt.in)
	}
}
