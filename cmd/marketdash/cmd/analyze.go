package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/dashboard"
	"github.com/rustyeddy/marketdash/export"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <symbol>",
	Short: "Fetch one symbol and print its derived analytics",
	Long: `Analyze fetches one symbol, derives per-period returns and a simple
moving average, and prints summary statistics with the most recent
rows.

Examples:
  marketdash analyze AAPL
  marketdash analyze --window 10 --days 90 MSFT
  marketdash analyze --export --dir ./data GOOGL`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	anStart       string
	anEnd         string
	anDays        int
	anGranularity string
	anWindow      int
	anExport      bool
	anDir         string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&anStart, "start", "", "range start (2006-01-02 or RFC3339)")
	analyzeCmd.Flags().StringVar(&anEnd, "end", "", "range end (2006-01-02 or RFC3339)")
	analyzeCmd.Flags().IntVar(&anDays, "days", 0, "trailing days when --start is unset (default from config)")
	analyzeCmd.Flags().StringVarP(&anGranularity, "granularity", "g", "", "bar size: minute, 15min, hour, day (default from config)")
	analyzeCmd.Flags().IntVarP(&anWindow, "window", "w", 0, "moving-average window, 5..50 (default from config)")
	analyzeCmd.Flags().BoolVar(&anExport, "export", false, "also write {SYMBOL}_derived.csv")
	analyzeCmd.Flags().StringVarP(&anDir, "dir", "o", "", "export directory (default from config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	days := anDays
	if days == 0 {
		days = cfg.Dashboard.Days
	}
	granularity := anGranularity
	if granularity == "" {
		granularity = cfg.Dashboard.Granularity
	}
	window := anWindow
	if window == 0 {
		window = cfg.Dashboard.Window
	}

	g, err := alpaca.ParseGranularity(granularity)
	if err != nil {
		return err
	}
	start, end, err := resolveRange(anStart, anEnd, days)
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
	runner.Logf = warnf

	res, err := runner.Run(cmd.Context(), dashboard.RunRequest{
		Symbols:     []string{symbol},
		Start:       start,
		End:         end,
		Granularity: g,
		Window:      window,
	})
	if err != nil {
		return err
	}

	dashboard.PrintSymbolDetail(os.Stdout, res, symbol)

	if anExport {
		dir := anDir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		path, err := export.Derived(dir, res.Derived[symbol])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
	}
	return nil
}
