// Package export writes bar history and derived columns out as CSV
// for spreadsheets and downstream tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/marketdash/analyze"
	"github.com/rustyeddy/marketdash/pricing"
)

// Filename returns the conventional export name for a symbol,
// "AAPL_data.csv".
func Filename(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "_data.csv"
}

// WriteSeries writes one symbol's bars as CSV with a header row.
func WriteSeries(w io.Writer, series pricing.BarSeries) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"timestamp", "open", "high", "low", "close", "volume", "trade_count", "vwap"}); err != nil {
		return err
	}
	for _, b := range series.Bars {
		cw.Write([]string{
			b.Time.Format(time.RFC3339),
			f(b.Open),
			f(b.High),
			f(b.Low),
			f(b.Close),
			strconv.FormatInt(b.Volume, 10),
			strconv.FormatInt(b.TradeCount, 10),
			f(b.VWAP),
		})
	}

	cw.Flush()
	return cw.Error()
}

// WriteDerived writes the derived columns for one symbol. Undefined
// cells are left empty rather than written as NaN.
func WriteDerived(w io.Writer, d analyze.Derived) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"timestamp", "close", "returns", "moving_average"}); err != nil {
		return err
	}
	for i := range d.Close {
		cw.Write([]string{
			d.Times[i].Format(time.RFC3339),
			f(d.Close[i]),
			cell(d.Returns[i]),
			cell(d.MovingAverage[i]),
		})
	}

	cw.Flush()
	return cw.Error()
}

// WriteNormalized writes the comparison table, one column per symbol.
func WriteNormalized(w io.Writer, n analyze.Normalized) error {
	cw := csv.NewWriter(w)

	header := append([]string{"timestamp"}, n.Symbols...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, ts := range n.Times {
		row := make([]string, 0, len(header))
		row = append(row, ts.Format(time.RFC3339))
		for _, symbol := range n.Symbols {
			row = append(row, cell(n.Values[symbol][i]))
		}
		cw.Write(row)
	}

	cw.Flush()
	return cw.Error()
}

// Series writes one symbol's bars into dir under the conventional
// filename and returns the path.
func Series(dir string, series pricing.BarSeries) (string, error) {
	path := filepath.Join(dir, Filename(series.Symbol))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", series.Symbol, err)
	}
	defer file.Close()

	if err := WriteSeries(file, series); err != nil {
		return "", fmt.Errorf("export %s: %w", series.Symbol, err)
	}
	return path, nil
}

// All writes every symbol's bars into dir, one file per symbol, and
// returns the paths in symbol order.
func All(dir string, results map[string]pricing.BarSeries) ([]string, error) {
	symbols := make([]string, 0, len(results))
	for s := range results {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	paths := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		path, err := Series(dir, results[symbol])
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Derived writes one symbol's derived columns into dir and returns
// the path.
func Derived(dir string, d analyze.Derived) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_derived.csv", d.Symbol))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", d.Symbol, err)
	}
	defer file.Close()

	if err := WriteDerived(file, d); err != nil {
		return "", fmt.Errorf("export %s: %w", d.Symbol, err)
	}
	return path, nil
}

// Comparison writes the normalized table into dir as comparison.csv.
func Comparison(dir string, n analyze.Normalized) (string, error) {
	path := filepath.Join(dir, "comparison.csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export comparison: %w", err)
	}
	defer file.Close()

	if err := WriteNormalized(file, n); err != nil {
		return "", fmt.Errorf("export comparison: %w", err)
	}
	return path, nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// cell formats a float for CSV, mapping NaN to an empty cell.
func cell(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return f(x)
}
