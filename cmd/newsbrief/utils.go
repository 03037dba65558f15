package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/newsbrief"
	"github.com/pevans/newsbrief/config"
	"github.com/pevans/newsbrief/ledger"
	"github.com/spf13/cobra"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default. A
// set but malformed value is an error.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return intVal, nil
}

// getEnvDuration parses a duration from environment variable or returns
// default. A set but malformed value is an error.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return duration, nil
}

// loadConfig resolves configuration: flags over environment over the
// config file over defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = getEnv("NEWSBRIEF_CONFIG", "")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	cfg.BaseURL = getEnv("NEWSBRIEF_BASE_URL", cfg.BaseURL)
	cfg.RSSURL = getEnv("NEWSBRIEF_RSS_URL", cfg.RSSURL)
	cfg.OutputDir = getEnv("NEWSBRIEF_OUTPUT_DIR", cfg.OutputDir)
	cfg.LedgerDSN = getEnv("NEWSBRIEF_LEDGER_DSN", cfg.LedgerDSN)
	cfg.UserAgent = getEnv("NEWSBRIEF_USER_AGENT", cfg.UserAgent)
	if cfg.MaxPages, err = getEnvInt("NEWSBRIEF_MAX_PAGES", cfg.MaxPages); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = getEnvDuration("NEWSBRIEF_TIMEOUT", cfg.Timeout); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ledger") {
		cfg.LedgerDSN = ledgerDSN
	}
	if cfg.LedgerDSN == "none" {
		cfg.LedgerDSN = ""
	}
	if f := flags.Lookup("output"); f != nil && f.Changed {
		cfg.OutputDir = f.Value.String()
	}
	if f := flags.Lookup("max-pages"); f != nil && f.Changed {
		n, err := strconv.Atoi(f.Value.String())
		if err != nil {
			return nil, fmt.Errorf("invalid --max-pages: %w", err)
		}
		cfg.MaxPages = n
	}

	return cfg, cfg.Validate()
}

// newLogger creates the logger shared by a command.
func newLogger() *log.Logger {
	level := log.InfoLevel
	if debug || getEnv("NEWSBRIEF_DEBUG", "") != "" {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})
}

// parseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(newsbrief.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// openLedger opens the run ledger, or returns nil when it is disabled.
func openLedger(cfg *config.Config, logger *log.Logger) (*ledger.Store, error) {
	if cfg.LedgerDSN == "" {
		logger.Debug("Run ledger disabled")
		return nil, nil
	}
	store, err := ledger.NewStore(cfg.LedgerDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return store, nil
}
