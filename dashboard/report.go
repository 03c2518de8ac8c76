package dashboard

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// PrintRunReport writes a plain-text summary of one analysis run.
func PrintRunReport(w io.Writer, r RunResult) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Dashboard Run")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Symbols:       %s\n", strings.Join(r.Requested, ", "))
	fmt.Fprintf(w, "Start:         %s\n", r.Request.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.Request.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Granularity:   %s\n", r.Request.Granularity)
	fmt.Fprintf(w, "MA Window:     %d\n", r.Request.Window)
	fmt.Fprintf(w, "Elapsed:       %s\n", r.Elapsed.Round(time.Millisecond))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fetch")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, symbol := range r.Symbols() {
		fmt.Fprintf(w, "%-8s %d bars\n", symbol, r.Series[symbol].Len())
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "%-8s FAILED: %v\n", warn.Symbol, warn.Err)
	}

	if len(r.Stats) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Summary Statistics")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "%-8s %12s %10s %10s %10s\n", "Symbol", "Last Close", "Return", "Vol", "Max DD")
		for _, symbol := range r.Symbols() {
			s := r.Stats[symbol]
			fmt.Fprintf(w, "%-8s %12.2f %9.2f%% %9.4f %9.2f%%\n",
				symbol, s.LastClose, s.TotalReturn*100, s.Volatility, s.MaxDrawdown*100)
		}
	}

	if r.Normalized.Len() > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Comparison (base 100)")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, symbol := range r.Normalized.Symbols {
			col := r.Normalized.Values[symbol]
			if last, ok := lastDefined(col); ok {
				fmt.Fprintf(w, "%-8s %12.2f\n", symbol, last)
			}
		}
	}

	fmt.Fprintln(w)
}

// detailRows is how many trailing rows PrintSymbolDetail tabulates.
const detailRows = 10

// PrintSymbolDetail writes the derived columns and statistics for one
// symbol of a run, ending with the most recent rows.
func PrintSymbolDetail(w io.Writer, r RunResult, symbol string) {
	d, ok := r.Derived[symbol]
	if !ok {
		fmt.Fprintf(w, "no data for symbol %q\n", symbol)
		return
	}
	s := r.Stats[symbol]

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " %s\n", symbol)
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Rows:          %d\n", d.Len())
	fmt.Fprintf(w, "MA Window:     %d\n", d.Window)
	fmt.Fprintf(w, "First Close:   %.2f\n", s.FirstClose)
	fmt.Fprintf(w, "Last Close:    %.2f\n", s.LastClose)
	fmt.Fprintf(w, "Total Return:  %.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(w, "Mean Return:   %.4f%%\n", s.MeanReturn*100)
	fmt.Fprintf(w, "Volatility:    %.4f\n", s.Volatility)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdown*100)

	rows := d.Len()
	n := detailRows
	if rows < n {
		n = rows
	}
	if n == 0 {
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Last %d rows\n", n)
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "%-17s %10s %9s %10s\n", "Time", "Close", "Return", fmt.Sprintf("MA(%d)", d.Window))
	for i := rows - n; i < rows; i++ {
		fmt.Fprintf(w, "%-17s %10.2f %9s %10s\n",
			timeCell(d.Times[i]), d.Close[i], pctCell(d.Returns[i]), numCell(d.MovingAverage[i]))
	}
	fmt.Fprintln(w)
}

// lastDefined returns the last non-NaN value of a column.
func lastDefined(col []float64) (float64, bool) {
	for i := len(col) - 1; i >= 0; i-- {
		if !math.IsNaN(col[i]) {
			return col[i], true
		}
	}
	return 0, false
}

// timeCell drops the midnight clock reading daily bars carry.
func timeCell(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

// pctCell renders an undefined return as a dash.
func pctCell(x float64) string {
	if math.IsNaN(x) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

// numCell renders an undefined value as a dash.
func numCell(x float64) string {
	if math.IsNaN(x) {
		return "-"
	}
	return fmt.Sprintf("%.2f", x)
}
