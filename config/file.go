package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/newsbrief/scraper"
	"gopkg.in/yaml.v3"
)

// Config is the resolved harvester configuration.
type Config struct {
	BaseURL   string
	RSSURL    string
	OutputDir string
	// LedgerDSN is the SQLite ledger path; empty disables the ledger
	LedgerDSN string
	MaxPages  int
	UserAgent string
	Timeout   time.Duration
	Selectors scraper.PageConfig
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:   "https://emm.newsbrief.eu/NewsBrief/dynamic",
		RSSURL:    "https://emm.newsbrief.eu/rss/rss",
		OutputDir: "data",
		LedgerDSN: "newsbrief.db",
		MaxPages:  500,
		Timeout:   30 * time.Second,
		Selectors: scraper.DefaultPageConfig(),
	}
}

// FileConfig represents the structure of ~/.newsbrief/config.yaml. Unset
// fields keep their defaults.
type FileConfig struct {
	BaseURL   string             `yaml:"base_url"`
	RSSURL    string             `yaml:"rss_url"`
	OutputDir string             `yaml:"output_dir"`
	LedgerDSN *string            `yaml:"ledger_dsn"`
	MaxPages  int                `yaml:"max_pages"`
	UserAgent string             `yaml:"user_agent"`
	Timeout   time.Duration      `yaml:"timeout"`
	Selectors scraper.PageConfig `yaml:"selectors"`
}

// DefaultPath returns ~/.newsbrief/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsbrief", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path, or from DefaultPath when
// path is empty. A missing default file is not an error and returns nil; a
// missing explicit path is.
func LoadConfigFile(path string) (*FileConfig, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Apply overlays the set fields of the file config onto c.
func (c *Config) Apply(f *FileConfig) {
	if f == nil {
		return
	}
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.RSSURL != "" {
		c.RSSURL = f.RSSURL
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	if f.LedgerDSN != nil {
		c.LedgerDSN = *f.LedgerDSN
	}
	if f.MaxPages != 0 {
		c.MaxPages = f.MaxPages
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	c.Selectors = c.Selectors.Merge(f.Selectors)
}

// Load returns the defaults overlaid with the config file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Apply(f)
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must be set")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must be set")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1, got %d", c.MaxPages)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
