package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketdash/dashboard"
	"github.com/rustyeddy/marketdash/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP and WebSocket",
	Long: `Serve starts an HTTP server exposing the latest dashboard run as a
REST API with a WebSocket feed for progress and refresh events. A
refresh runs at startup, on POST /api/v1/refresh, and on the cron
schedule when one is configured.

Examples:
  marketdash serve
  marketdash serve --addr :9000
  marketdash serve --cron "@hourly"`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr string
	serveCron string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveCron, "cron", "", "auto-refresh schedule, e.g. \"@hourly\" (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("cron") {
		cfg.Server.RefreshCron = serveCron
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	j, lister, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	runner := dashboard.New(fetcher)
	runner.Workers = cfg.Dashboard.Workers
	runner.Journal = j
	runner.Logf = log.Printf

	opts := server.Options{Config: cfg, Runner: runner, Logf: log.Printf}
	if lister != nil {
		opts.Runs = lister
	}

	s, err := server.New(opts)
	if err != nil {
		return err
	}
	return s.Start(ctx)
}
