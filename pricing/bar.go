package pricing

import (
	"sort"
	"time"
)

// Bar is one OHLCV record for a fixed time interval.
type Bar struct {
	Time time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume     int64
	TradeCount int64
	VWAP       float64
}

// BarSeries is the chronological bar history for exactly one symbol.
// An empty series means "no data for the requested range", not an error.
type BarSeries struct {
	Symbol string
	Bars   []Bar
}

func (s BarSeries) Len() int { return len(s.Bars) }

func (s BarSeries) Empty() bool { return len(s.Bars) == 0 }

// First returns the earliest bar, or ok=false on an empty series.
func (s BarSeries) First() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// Last returns the latest bar, or ok=false on an empty series.
func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close column in row order.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Times returns the timestamp column in row order.
func (s BarSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

// Sort orders bars chronologically. The sort is stable so rows with
// equal timestamps keep their arrival order.
func (s BarSeries) Sort() {
	sort.SliceStable(s.Bars, func(i, j int) bool {
		return s.Bars[i].Time.Before(s.Bars[j].Time)
	})
}

// Clone returns a deep copy whose bars the caller may mutate freely.
func (s BarSeries) Clone() BarSeries {
	out := BarSeries{Symbol: s.Symbol}
	if s.Bars != nil {
		out.Bars = make([]Bar, len(s.Bars))
		copy(out.Bars, s.Bars)
	}
	return out
}
