package analyze

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/marketdash/pricing"
)

// Normalized is one comparison table. Each symbol's closing prices are
// rescaled so its first observation is exactly 100, which makes
// percentage moves comparable across symbols with very different price
// levels.
//
// Rows are the sorted union of every symbol's timestamps (an outer
// join). Where a symbol has no bar at a row's timestamp, its cell is
// NaN; gaps are left visible rather than filled.
type Normalized struct {
	Times   []time.Time
	Symbols []string             // sorted
	Values  map[string][]float64 // per symbol, len == len(Times)
}

// Len returns the row count of the comparison table.
func (n Normalized) Len() int { return len(n.Times) }

// Normalize rescales every non-empty series to a base of 100 at its
// first observation. Symbols with an empty series contribute nothing.
// A symbol whose first close is zero is skipped; there is no base to
// rescale against.
func Normalize(results map[string]pricing.BarSeries) Normalized {
	n := Normalized{Values: make(map[string][]float64, len(results))}

	union := make(map[int64]time.Time)
	for _, series := range results {
		for _, b := range series.Bars {
			union[b.Time.UnixNano()] = b.Time
		}
	}

	keys := make([]int64, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	n.Times = make([]time.Time, len(keys))
	for i, k := range keys {
		n.Times[i] = union[k]
	}

	for symbol, series := range results {
		first, ok := series.First()
		if !ok || first.Close == 0 {
			continue
		}

		byTime := make(map[int64]float64, series.Len())
		for _, b := range series.Bars {
			byTime[b.Time.UnixNano()] = b.Close
		}

		col := make([]float64, len(keys))
		for i, k := range keys {
			if c, present := byTime[k]; present {
				col[i] = c / first.Close * 100
			} else {
				col[i] = math.NaN()
			}
		}

		n.Values[symbol] = col
		n.Symbols = append(n.Symbols, symbol)
	}
	sort.Strings(n.Symbols)

	return n
}
