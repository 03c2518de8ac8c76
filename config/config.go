package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/marketdash/alpaca"
	"github.com/rustyeddy/marketdash/analyze"
)

// Config represents the complete dashboard configuration
type Config struct {
	API       APIConfig       `json:"api" yaml:"api"`
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Export    ExportConfig    `json:"export" yaml:"export"`
}

// APIConfig contains market-data client parameters
type APIConfig struct {
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Feed        string `json:"feed" yaml:"feed"` // "iex" or "sip"
	Timeout     string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g., "30s"
	SecretsFile string `json:"secrets_file,omitempty" yaml:"secrets_file,omitempty"`
}

// ParseTimeout converts the timeout string to time.Duration
func (a APIConfig) ParseTimeout() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(a.Timeout)
}

// DashboardConfig contains the default analysis parameters
type DashboardConfig struct {
	Symbols     []string `json:"symbols" yaml:"symbols"`
	Days        int      `json:"days" yaml:"days"` // lookback from today
	Granularity string   `json:"granularity" yaml:"granularity"`
	Window      int      `json:"window" yaml:"window"` // moving-average window
	Workers     int      `json:"workers" yaml:"workers"`
}

// CacheConfig contains fetch-cache parameters
type CacheConfig struct {
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty"` // e.g., "1h"
}

// ParseTTL converts the ttl string to time.Duration
func (c CacheConfig) ParseTTL() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TTL)
}

// JournalConfig contains run journaling parameters
type JournalConfig struct {
	Type     string `json:"type" yaml:"type"` // "csv" or "sqlite"
	RunsFile string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig contains HTTP server parameters
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	RefreshCron string `json:"refresh_cron,omitempty" yaml:"refresh_cron,omitempty"` // e.g., "@hourly"; empty disables
}

// ExportConfig contains CSV export parameters
type ExportConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Dashboard.Symbols) == 0 {
		return fmt.Errorf("dashboard.symbols requires at least one symbol")
	}
	if c.Dashboard.Days <= 0 {
		return fmt.Errorf("dashboard.days must be positive")
	}
	if _, err := alpaca.ParseGranularity(c.Dashboard.Granularity); err != nil {
		return fmt.Errorf("dashboard.granularity: %w", err)
	}
	if c.Dashboard.Window < analyze.MinWindow || c.Dashboard.Window > analyze.MaxWindow {
		return fmt.Errorf("dashboard.window must be between %d and %d", analyze.MinWindow, analyze.MaxWindow)
	}
	if c.Dashboard.Workers <= 0 {
		return fmt.Errorf("dashboard.workers must be positive")
	}
	if c.API.Timeout != "" {
		d, err := time.ParseDuration(c.API.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("api.timeout must be a positive duration")
		}
	}
	if c.Cache.TTL != "" {
		d, err := time.ParseDuration(c.Cache.TTL)
		if err != nil || d <= 0 {
			return fmt.Errorf("cache.ttl must be a positive duration")
		}
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.RunsFile == "" {
		return fmt.Errorf("journal runs_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.Server.RefreshCron); err != nil {
			return fmt.Errorf("server.refresh_cron: %w", err)
		}
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("export.dir is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		API: APIConfig{
			Feed:    "iex",
			Timeout: "30s",
		},
		Dashboard: DashboardConfig{
			Symbols:     []string{"AAPL", "MSFT", "GOOGL", "AMZN"},
			Days:        365,
			Granularity: "day",
			Window:      analyze.DefaultWindow,
			Workers:     5,
		},
		Cache: CacheConfig{
			TTL: "1h",
		},
		Journal: JournalConfig{
			Type:     "csv",
			RunsFile: "./runs.csv",
		},
		Server: ServerConfig{
			Addr: ":8087",
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}
