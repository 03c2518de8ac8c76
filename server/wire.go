package server

import (
	"encoding/json"
	"math"
	"time"

	"github.com/rustyeddy/marketdash/analyze"
	"github.com/rustyeddy/marketdash/dashboard"
	"github.com/rustyeddy/marketdash/journal"
)

// nullFloat marshals NaN as null. Undefined cells (warmup rows, gaps
// in the comparison table) must survive the trip through JSON, which
// rejects NaN outright.
type nullFloat float64

func (f nullFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func nullable(values []float64) []nullFloat {
	out := make([]nullFloat, len(values))
	for i, v := range values {
		out[i] = nullFloat(v)
	}
	return out
}

// Snapshot is the dashboard overview: one completed run reduced to
// what the overview renders. Full series stay behind
// /api/v1/symbols/:symbol and /api/v1/compare.
type Snapshot struct {
	Type        string        `json:"type"`
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Granularity string        `json:"granularity"`
	Window      int           `json:"window"`
	Requested   []string      `json:"requested"`
	Symbols     []string      `json:"symbols"`
	Stats       []SymbolStats `json:"stats"`
	Warnings    []Warning     `json:"warnings"`
	ElapsedMS   int64         `json:"elapsed_ms"`
}

// SymbolStats is one overview row.
type SymbolStats struct {
	Symbol      string  `json:"symbol"`
	Bars        int     `json:"bars"`
	FirstClose  float64 `json:"first_close"`
	LastClose   float64 `json:"last_close"`
	TotalReturn float64 `json:"total_return"`
	MeanReturn  float64 `json:"mean_return"`
	Volatility  float64 `json:"volatility"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Warning names a symbol whose fetch failed and why.
type Warning struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// SymbolDetail is the full derived column set for one symbol.
type SymbolDetail struct {
	Symbol        string      `json:"symbol"`
	Window        int         `json:"window"`
	Times         []time.Time `json:"times"`
	Close         []float64   `json:"close"`
	Returns       []nullFloat `json:"returns"`
	MovingAverage []nullFloat `json:"moving_average"`
	Stats         SymbolStats `json:"stats"`
}

// Compare is the wire form of the base-100 comparison table.
type Compare struct {
	RunID   string                 `json:"run_id"`
	Times   []time.Time            `json:"times"`
	Symbols []string               `json:"symbols"`
	Values  map[string][]nullFloat `json:"values"`
}

// RunSummary is one journal row on the wire.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Time        time.Time `json:"time"`
	Symbols     string    `json:"symbols"`
	RangeStart  time.Time `json:"range_start"`
	RangeEnd    time.Time `json:"range_end"`
	Granularity string    `json:"granularity"`
	Window      int       `json:"ma_window"`
	WithData    int       `json:"with_data"`
	Warnings    int       `json:"warnings"`
	ElapsedMS   int64     `json:"elapsed_ms"`
}

type progressEvent struct {
	Type      string `json:"type"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type refreshFailedEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func buildSnapshot(res dashboard.RunResult) Snapshot {
	snap := Snapshot{
		Type:        "snapshot",
		RunID:       res.RunID,
		GeneratedAt: time.Now().UTC(),
		Start:       res.Request.Start,
		End:         res.Request.End,
		Granularity: string(res.Request.Granularity),
		Window:      res.Request.Window,
		Requested:   res.Requested,
		Symbols:     res.Symbols(),
		Stats:       make([]SymbolStats, 0, len(res.Stats)),
		Warnings:    make([]Warning, 0, len(res.Warnings)),
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
	for _, symbol := range snap.Symbols {
		snap.Stats = append(snap.Stats, statsRow(res.Stats[symbol]))
	}
	for _, w := range res.Warnings {
		snap.Warnings = append(snap.Warnings, Warning{Symbol: w.Symbol, Error: w.Err.Error()})
	}
	return snap
}

func statsRow(st analyze.Stats) SymbolStats {
	return SymbolStats{
		Symbol:      st.Symbol,
		Bars:        st.Rows,
		FirstClose:  st.FirstClose,
		LastClose:   st.LastClose,
		TotalReturn: st.TotalReturn,
		MeanReturn:  st.MeanReturn,
		Volatility:  st.Volatility,
		MaxDrawdown: st.MaxDrawdown,
	}
}

func buildSymbolDetail(d analyze.Derived, st analyze.Stats) SymbolDetail {
	return SymbolDetail{
		Symbol:        d.Symbol,
		Window:        d.Window,
		Times:         d.Times,
		Close:         d.Close,
		Returns:       nullable(d.Returns),
		MovingAverage: nullable(d.MovingAverage),
		Stats:         statsRow(st),
	}
}

func buildCompare(res dashboard.RunResult) Compare {
	out := Compare{
		RunID:   res.RunID,
		Times:   res.Normalized.Times,
		Symbols: res.Normalized.Symbols,
		Values:  make(map[string][]nullFloat, len(res.Normalized.Values)),
	}
	for symbol, col := range res.Normalized.Values {
		out.Values[symbol] = nullable(col)
	}
	return out
}

func buildRunSummaries(recs []journal.RunRecord) []RunSummary {
	out := make([]RunSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, RunSummary{
			RunID:       r.RunID,
			Time:        r.Time,
			Symbols:     r.Symbols,
			RangeStart:  r.RangeStart,
			RangeEnd:    r.RangeEnd,
			Granularity: r.Granularity,
			Window:      r.Window,
			WithData:    r.WithData,
			Warnings:    r.Warnings,
			ElapsedMS:   r.Elapsed.Milliseconds(),
		})
	}
	return out
}
