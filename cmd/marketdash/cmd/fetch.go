package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/aggregate"
	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/export"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbols...]",
	Short: "Fetch historical bars and export them as CSV",
	Long: `Fetch historical bars for one or more symbols in parallel and write
one {SYMBOL}_data.csv per symbol. Symbols default to the configured
dashboard list.

Examples:
  marketdash fetch AAPL MSFT GOOGL
  marketdash fetch --days 90 --granularity hour AAPL
  marketdash fetch --start 2024-01-02 --end 2024-06-28 --dir ./data`,
	RunE: runFetch,
}

var (
	fetchStart       string
	fetchEnd         string
	fetchDays        int
	fetchGranularity string
	fetchDir         string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "range start (2006-01-02 or RFC3339)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "range end (2006-01-02 or RFC3339)")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 0, "trailing days when --start is unset (default from config)")
	fetchCmd.Flags().StringVarP(&fetchGranularity, "granularity", "g", "", "bar size: minute, 15min, hour, day (default from config)")
	fetchCmd.Flags().StringVarP(&fetchDir, "dir", "o", "", "export directory (default from config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	symbols := symbolArgs(args)
	if len(symbols) == 0 {
		symbols = cfg.Dashboard.Symbols
	}
	days := fetchDays
	if days == 0 {
		days = cfg.Dashboard.Days
	}
	granularity := fetchGranularity
	if granularity == "" {
		granularity = cfg.Dashboard.Granularity
	}
	dir := fetchDir
	if dir == "" {
		dir = cfg.Export.Dir
	}

	g, err := alpaca.ParseGranularity(granularity)
	if err != nil {
		return err
	}
	start, end, err := resolveRange(fetchStart, fetchEnd, days)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	agg := aggregate.New(fetcher)
	agg.Workers = cfg.Dashboard.Workers
	agg.OnProgress = progressLine
	agg.Logf = warnf

	res, err := agg.Fetch(cmd.Context(), aggregate.Request{
		Symbols:     symbols,
		Start:       start,
		End:         end,
		Granularity: g,
	})
	if err != nil {
		return err
	}
	if res.Empty() {
		return fmt.Errorf("no data returned for any requested symbol")
	}

	paths, err := export.All(dir, res.Series)
	if err != nil {
		return err
	}

	for _, path := range paths {
		fmt.Printf("✓ Wrote %s\n", path)
	}
	fmt.Printf("\nFetched %d of %d symbols", len(res.Series), len(res.Requested))
	if len(res.Warnings) > 0 {
		fmt.Printf(" (%d failed)", len(res.Warnings))
	}
	fmt.Println()
	return nil
}

// warnf surfaces per-symbol fetch failures on the console.
func warnf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
