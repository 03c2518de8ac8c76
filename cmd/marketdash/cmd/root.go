package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/aggregate"
	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/config"
	"github.com/rustyeddy/marketdash/credentials"
	"github.com/rustyeddy/marketdash/journal"
)

var rootCmd = &cobra.Command{
	Use:   "marketdash",
	Short: "A multi-symbol stock analysis dashboard for the terminal",
	Long: `Marketdash fetches historical stock bars from Alpaca, derives
per-symbol analytics and writes everything where you can use it.

It provides tools for:
  - Fetching daily and intraday bars for many symbols in parallel
  - Deriving returns and moving averages per symbol
  - Comparing symbols on a common base-100 scale
  - Exporting series as CSV files
  - Journaling runs to CSV or SQLite
  - Serving the latest results over HTTP and WebSocket

Complete documentation is available at https://github.com/rustyeddy/marketdash`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env beside the binary is a convenience, not a requirement.
		_ = godotenv.Load()
	},
}

var (
	cfgFile     string
	secretsFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default built-in settings)")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets", "", "secrets file (default ~/.config/marketdash/secrets.yaml)")
}

// loadConfig returns the file-backed config when --config is set and
// the built-in defaults otherwise. --secrets overrides the secrets
// location either way.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if secretsFile != "" {
		cfg.API.SecretsFile = secretsFile
	}
	return cfg, nil
}

// newFetcher resolves credentials and builds the cached market-data
// client every data command shares. Failure to resolve credentials is
// fatal by decree; there is nothing to fetch without them.
func newFetcher(cfg *config.Config) (alpaca.Fetcher, error) {
	creds, err := credentials.NewResolver(cfg.API.SecretsFile).Resolve()
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.API.ParseTimeout()
	if err != nil {
		return nil, fmt.Errorf("api.timeout: %w", err)
	}
	client := alpaca.NewClient(creds.Key, creds.Secret, alpaca.Options{
		BaseURL: cfg.API.BaseURL,
		Feed:    cfg.API.Feed,
		Timeout: timeout,
	})

	ttl, err := cfg.Cache.ParseTTL()
	if err != nil {
		return nil, fmt.Errorf("cache.ttl: %w", err)
	}
	return alpaca.NewCache(client, ttl), nil
}

// openJournal opens the configured run journal. The SQLite handle is
// returned separately because only it can answer history queries.
func openJournal(cfg *config.Config) (journal.Journal, *journal.SQLite, error) {
	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.RunsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		return j, nil, nil
	case "sqlite":
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		return j, j, nil
	default:
		return nil, nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
	}
}

// symbolArgs flattens positional symbol arguments into a clean list.
// Both "AAPL MSFT" and "AAPL,MSFT" spellings are accepted.
func symbolArgs(args []string) []string {
	return aggregate.ParseSymbols(strings.Join(args, ","))
}

// parseDate accepts a plain day or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want 2006-01-02 or RFC3339)", s)
	}
	return t, nil
}

// resolveRange turns the --start/--end/--days flags into a concrete
// range. Unset bounds default to the trailing days window ending
// today.
func resolveRange(startFlag, endFlag string, days int) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if endFlag != "" {
		t, err := parseDate(endFlag)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}

	start := end.AddDate(0, 0, -days)
	if startFlag != "" {
		t, err := parseDate(startFlag)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	return start, end, nil
}

// progressLine writes fetch progress in place; the final tick ends the
// line so the report below starts clean.
func progressLine(completed, total int) {
	fmt.Printf("\rFetching %d/%d symbols...", completed, total)
	if completed == total {
		fmt.Println()
	}
}
