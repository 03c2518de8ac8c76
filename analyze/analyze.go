// Package analyze derives return series, rolling means, and
// cross-symbol comparisons from bar history. Every function here is
// pure: same input, same output, no side effects.
package analyze

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/marketdash/pricing"
)

// Moving-average window bounds. The window is user-chosen; anything
// outside this range is rejected before any computation.
const (
	MinWindow     = 5
	MaxWindow     = 50
	DefaultWindow = 20
)

// Derived holds the computed columns for one symbol over one window.
// All columns share the series' row count and timestamp order. Cells
// with no defined value (the first return, the first window-1 rows of
// the moving average) are NaN.
type Derived struct {
	Symbol        string
	Times         []time.Time
	Close         []float64
	Returns       []float64
	MovingAverage []float64
	Window        int
}

// Len returns the row count of the derived columns.
func (d Derived) Len() int { return len(d.Close) }

// Derive computes the return and moving-average columns for one
// symbol's series. The input is expected chronologically sorted, which
// the fetch layer guarantees.
func Derive(series pricing.BarSeries, window int) (Derived, error) {
	if window < MinWindow || window > MaxWindow {
		return Derived{}, fmt.Errorf("window must be between %d and %d, got %d", MinWindow, MaxWindow, window)
	}

	closes := series.Closes()
	return Derived{
		Symbol:        series.Symbol,
		Times:         series.Times(),
		Close:         closes,
		Returns:       Returns(closes),
		MovingAverage: SMA(closes, window),
		Window:        window,
	}, nil
}

// Returns computes period-over-period fractional change of each value
// against the prior one. The first cell is NaN; there is no prior
// value. A zero prior also yields NaN rather than an infinity.
func Returns(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 || values[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// SMA computes the simple moving average over the trailing window
// values. The first window-1 cells are NaN; when the window exceeds
// the series length, every cell is NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
