package analyze

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one symbol's derived series for reports.
type Stats struct {
	Symbol      string
	Rows        int
	FirstClose  float64
	LastClose   float64
	TotalReturn float64 // fractional change, first close to last
	MeanReturn  float64 // mean of the per-period returns
	Volatility  float64 // sample standard deviation of the returns
	MaxDrawdown float64 // largest peak-to-trough close decline
}

// Summarize computes summary statistics over a derived series. NaN
// cells are excluded before the mean and deviation are taken.
func Summarize(d Derived) Stats {
	s := Stats{Symbol: d.Symbol, Rows: d.Len()}
	if s.Rows == 0 {
		return s
	}

	s.FirstClose = d.Close[0]
	s.LastClose = d.Close[s.Rows-1]
	if s.FirstClose != 0 {
		s.TotalReturn = s.LastClose/s.FirstClose - 1
	}

	returns := defined(d.Returns)
	if len(returns) > 0 {
		s.MeanReturn = stat.Mean(returns, nil)
	}
	if len(returns) > 1 {
		s.Volatility = stat.StdDev(returns, nil)
	}

	peak := math.Inf(-1)
	for _, c := range d.Close {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak; dd > s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
		}
	}

	return s
}

// defined filters the NaN cells out of a column.
func defined(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
