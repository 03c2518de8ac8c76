package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/journal"
	"github.com/rustyeddy/marketdash/pkg/id"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded dashboard runs",
	Long: `Query and display run records from the SQLite journal.

Subcommands:
  recent - List the most recent runs
  run    - Get details of a specific run by ID
  day    - List runs recorded on a specific day

Examples:
  marketdash journal recent -n 5
  marketdash journal run <run-id>
  marketdash journal day 2024-06-01`,
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRecent,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Get details of a specific run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List runs recorded on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath  string
	journalRecentN int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRecentCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	journalRecentCmd.Flags().IntVarP(&journalRecentN, "count", "n", 10, "number of runs to list")
}

// journalDB opens the SQLite journal from --db or the config. The CSV
// journal cannot answer queries, so it is rejected here.
func journalDB() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if cfg.Journal.Type != "sqlite" || cfg.Journal.DBPath == "" {
			return nil, fmt.Errorf("run history requires the sqlite journal (set journal.type: sqlite or pass --db)")
		}
		path = cfg.Journal.DBPath
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRecent(cmd *cobra.Command, args []string) error {
	j, err := journalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListRecent(journalRecentN)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Println(journal.FormatRunsOrg(recs))
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	if !id.Valid(args[0]) {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	j, err := journalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Println(journal.FormatRunOrg(rec))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := journalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListRunsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if len(recs) == 0 {
		fmt.Printf("No runs recorded on %s.\n", args[0])
		return nil
	}

	fmt.Println(journal.FormatRunsOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
