package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/dashboard"
	"github.com/rustyeddy/marketdash/export"
)

var compareCmd = &cobra.Command{
	Use:   "compare [symbols...]",
	Short: "Run the full dashboard and compare symbols on a base-100 scale",
	Long: `Compare fetches several symbols in parallel, derives per-symbol
analytics, rescales every close series to 100 at its first observation
and prints the combined report. Symbols default to the configured
dashboard list, so a bare "marketdash compare" renders the default
dashboard.

Examples:
  marketdash compare
  marketdash compare AAPL MSFT GOOGL AMZN
  marketdash compare AAPL,MSFT,GOOGL
  marketdash compare --days 30 --granularity hour AAPL MSFT
  marketdash compare --export --dir ./data AAPL MSFT`,
	RunE: runCompare,
}

var (
	cmpStart       string
	cmpEnd         string
	cmpDays        int
	cmpGranularity string
	cmpWindow      int
	cmpExport      bool
	cmpDir         string
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&cmpStart, "start", "", "range start (2006-01-02 or RFC3339)")
	compareCmd.Flags().StringVar(&cmpEnd, "end", "", "range end (2006-01-02 or RFC3339)")
	compareCmd.Flags().IntVar(&cmpDays, "days", 0, "trailing days when --start is unset (default from config)")
	compareCmd.Flags().StringVarP(&cmpGranularity, "granularity", "g", "", "bar size: minute, 15min, hour, day (default from config)")
	compareCmd.Flags().IntVarP(&cmpWindow, "window", "w", 0, "moving-average window, 5..50 (default from config)")
	compareCmd.Flags().BoolVar(&cmpExport, "export", false, "also write per-symbol CSVs and comparison.csv")
	compareCmd.Flags().StringVarP(&cmpDir, "dir", "o", "", "export directory (default from config)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	symbols := symbolArgs(args)
	if len(symbols) == 0 {
		symbols = cfg.Dashboard.Symbols
	}
	days := cmpDays
	if days == 0 {
		days = cfg.Dashboard.Days
	}
	granularity := cmpGranularity
	if granularity == "" {
		granularity = cfg.Dashboard.Granularity
	}
	window := cmpWindow
	if window == 0 {
		window = cfg.Dashboard.Window
	}

	g, err := alpaca.ParseGranularity(granularity)
	if err != nil {
		return err
	}
	start, end, err := resolveRange(cmpStart, cmpEnd, days)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	j, _, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	runner := dashboard.New(fetcher)
	runner.Workers = cfg.Dashboard.Workers
	runner.Journal = j
	runner.OnProgress = progressLine
	runner.Logf = warnf

	res, err := runner.Run(cmd.Context(), dashboard.RunRequest{
		Symbols:     symbols,
		Start:       start,
		End:         end,
		Granularity: g,
		Window:      window,
	})
	if err != nil {
		return err
	}

	dashboard.PrintRunReport(os.Stdout, res)

	if cmpExport {
		dir := cmpDir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		paths, err := export.All(dir, res.Series)
		if err != nil {
			return err
		}
		if res.Normalized.Len() > 0 {
			path, err := export.Comparison(dir, res.Normalized)
			if err != nil {
				return err
			}
			paths = append(paths, path)
		}
		for _, path := range paths {
			fmt.Printf("✓ Wrote %s\n", path)
		}
	}
	return nil
}
