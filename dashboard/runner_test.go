package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/analyze"
	"github.com/rustyeddy/marketdash/journal"
	"github.com/rustyeddy/marketdash/pricing"
)

type stubFetcher struct {
	data map[string]pricing.BarSeries
	fail map[string]error

	mu    sync.Mutex
	calls int
}

func (f *stubFetcher) GetBars(ctx context.Context, req alpaca.BarsRequest) (pricing.BarSeries, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

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
	return f.calls
}

type fakeJournal struct {
	recs []journal.RunRecord
	err  error
}

func (f *fakeJournal) RecordRun(r journal.RunRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, r)
	return nil
}

func (f *fakeJournal) Close() error { return nil }

// trendSeries builds n daily bars climbing from 100.
func trendSeries(symbol string, n int) pricing.BarSeries {
	s := pricing.BarSeries{Symbol: symbol}
	for i := 0; i < n; i++ {
		c := 100.0 + float64(i)
		s.Bars = append(s.Bars, pricing.Bar{
			Time:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:  c - 0.5,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		})
	}
	return s
}

func runRequest(symbols ...string) RunRequest {
	return RunRequest{
		Symbols:     symbols,
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		Granularity: alpaca.Day,
	}
}

func TestRun(t *testing.T) {
	fake := &stubFetcher{data: map[string]pricing.BarSeries{
		"AAPL": trendSeries("AAPL", 30),
		"MSFT": trendSeries("MSFT", 30),
	}}
	jrnl := &fakeJournal{}

	runner := New(fake)
	runner.Journal = jrnl

	res, err := runner.Run(context.Background(), runRequest("aapl", "msft"))
	require.NoError(t, err)

	assert.Len(t, res.RunID, 26, "run ids are ULIDs")
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Requested)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols())
	assert.Empty(t, res.Warnings)

	// Window defaulted and threaded through
	assert.Equal(t, analyze.DefaultWindow, res.Request.Window)
	assert.Equal(t, analyze.DefaultWindow, res.Derived["AAPL"].Window)

	// Derived columns line up with the bars
	require.Contains(t, res.Derived, "AAPL")
	assert.Equal(t, 30, res.Derived["AAPL"].Len())

	// Comparison table starts at 100 for each symbol
	assert.Equal(t, 100.0, res.Normalized.Values["AAPL"][0])
	assert.Equal(t, 100.0, res.Normalized.Values["MSFT"][0])

	// Stats computed per symbol
	assert.Equal(t, 129.0, res.Stats["AAPL"].LastClose)

	// Run recorded
	require.Len(t, jrnl.recs, 1)
	rec := jrnl.recs[0]
	assert.Equal(t, res.RunID, rec.RunID)
	assert.Equal(t, "AAPL,MSFT", rec.Symbols)
	assert.Equal(t, 2, rec.WithData)
	assert.Equal(t, 0, rec.Warnings)
	assert.Equal(t, "1Day", rec.Granularity)
}

func TestRunNoData(t *testing.T) {
	jrnl := &fakeJournal{}
	runner := New(&stubFetcher{})
	runner.Journal = jrnl

	_, err := runner.Run(context.Background(), runRequest("AAA", "BBB"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Empty(t, jrnl.recs, "a no-data run is not recorded")
}

func TestRunWindowBounds(t *testing.T) {
	fake := &stubFetcher{}
	runner := New(fake)

	req := runRequest("AAPL")
	req.Window = analyze.MaxWindow + 1

	_, err := runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window must be between")
	assert.Equal(t, 0, fake.callCount(), "window validation happens before any fetch")
}

func TestRunValidatesDatesBeforeFetch(t *testing.T) {
	fake := &stubFetcher{}
	runner := New(fake)

	req := runRequest("AAPL")
	req.Start = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	req.End = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := runner.Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start must be before end")
	assert.Equal(t, 0, fake.callCount())
}

func TestRunPartialFailure(t *testing.T) {
	fake := &stubFetcher{
		data: map[string]pricing.BarSeries{
			"AAPL": trendSeries("AAPL", 30),
		},
		fail: map[string]error{
			"ZZZZ": fmt.Errorf("get bars ZZZZ: invalid symbol"),
		},
	}
	jrnl := &fakeJournal{}
	runner := New(fake)
	runner.Journal = jrnl

	res, err := runner.Run(context.Background(), runRequest("AAPL", "ZZZZ"))
	require.NoError(t, err, "one failed symbol must not fail the run")

	assert.Equal(t, []string{"AAPL"}, res.Symbols())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "ZZZZ", res.Warnings[0].Symbol)

	require.Len(t, jrnl.recs, 1)
	assert.Equal(t, 1, jrnl.recs[0].WithData)
	assert.Equal(t, 1, jrnl.recs[0].Warnings)
}

func TestRunJournalFailureIsSwallowed(t *testing.T) {
	fake := &stubFetcher{data: map[string]pricing.BarSeries{
		"AAPL": trendSeries("AAPL", 10),
	}}

	var logged []string
	runner := New(fake)
	runner.Journal = &fakeJournal{err: fmt.Errorf("disk full")}
	runner.Logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	res, err := runner.Run(context.Background(), runRequest("AAPL"))
	require.NoError(t, err, "losing the run record must not lose the run")
	assert.NotEmpty(t, res.RunID)

	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "record run")
}

func TestRunProgressForwarded(t *testing.T) {
	fake := &stubFetcher{data: map[string]pricing.BarSeries{
		"AAPL": trendSeries("AAPL", 10),
		"MSFT": trendSeries("MSFT", 10),
	}}

	var last, total int
	runner := New(fake)
	runner.OnProgress = func(completed, t int) {
		last, total = completed, t
	}

	_, err := runner.Run(context.Background(), runRequest("AAPL", "MSFT"))
	require.NoError(t, err)
	assert.Equal(t, 2, last)
	assert.Equal(t, 2, total)
}

func TestPrintRunReport(t *testing.T) {
	fake := &stubFetcher{
		data: map[string]pricing.BarSeries{
			"AAPL": trendSeries("AAPL", 30),
		},
		fail: map[string]error{
			"ZZZZ": fmt.Errorf("get bars ZZZZ: invalid symbol"),
		},
	}
	runner := New(fake)

	res, err := runner.Run(context.Background(), runRequest("AAPL", "ZZZZ"))
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintRunReport(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Dashboard Run")
	assert.Contains(t, out, res.RunID)
	assert.Contains(t, out, "AAPL, ZZZZ")
	assert.Contains(t, out, "AAPL     30 bars")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Summary Statistics")
	assert.Contains(t, out, "Comparison (base 100)")
}

func TestPrintSymbolDetail(t *testing.T) {
	// 12 rows under a 20-row window: the whole moving-average column
	// is undefined and must render as dashes, never NaN.
	fake := &stubFetcher{
		data: map[string]pricing.BarSeries{
			"AAPL": trendSeries("AAPL", 12),
		},
	}
	runner := New(fake)

	res, err := runner.Run(context.Background(), runRequest("AAPL"))
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSymbolDetail(&buf, res, "AAPL")
	out := buf.String()

	assert.Contains(t, out, " AAPL")
	assert.Contains(t, out, res.RunID)
	assert.Contains(t, out, "Rows:          12")
	assert.Contains(t, out, "Last 10 rows")
	assert.Contains(t, out, "MA(20)")
	assert.NotContains(t, out, "NaN")
	assert.Regexp(t, `111\.00\s+0\.91%\s+-\n`, out)

	buf.Reset()
	PrintSymbolDetail(&buf, res, "ZZZZ")
	assert.Contains(t, buf.String(), `no data for symbol "ZZZZ"`)
}
