package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points HOME at an empty directory so no user config is read
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"NEWSBRIEF_CONFIG", "NEWSBRIEF_BASE_URL", "NEWSBRIEF_RSS_URL",
		"NEWSBRIEF_OUTPUT_DIR", "NEWSBRIEF_LEDGER_DSN", "NEWSBRIEF_MAX_PAGES",
		"NEWSBRIEF_USER_AGENT", "NEWSBRIEF_TIMEOUT", "NEWSBRIEF_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

// TestGetEnvHelpers verifies environment parsing with defaults
func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("NB_TEST_STRING", "value")
	t.Setenv("NB_TEST_INT", "42")
	t.Setenv("NB_TEST_DURATION", "5s")

	assert.Equal(t, "value", getEnv("NB_TEST_STRING", "default"))
	assert.Equal(t, "default", getEnv("NB_TEST_UNSET", "default"))

	n, err := getEnvInt("NB_TEST_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = getEnvInt("NB_TEST_UNSET", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := getEnvDuration("NB_TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	d, err = getEnvDuration("NB_TEST_UNSET", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

// TestGetEnvHelpers_Malformed verifies malformed values are errors
func TestGetEnvHelpers_Malformed(t *testing.T) {
	t.Setenv("NB_TEST_BAD_INT", "forty-two")
	t.Setenv("NB_TEST_BAD_DURATION", "soon")

	_, err := getEnvInt("NB_TEST_BAD_INT", 1)
	assert.ErrorContains(t, err, "NB_TEST_BAD_INT")

	_, err = getEnvDuration("NB_TEST_BAD_DURATION", time.Minute)
	assert.ErrorContains(t, err, "NB_TEST_BAD_DURATION")
}

// TestParseDate verifies date flag parsing
func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDate("15/01/2024")
	assert.Error(t, err)
}

// TestLoadConfig_Precedence verifies flags override environment which
// overrides the config file
func TestLoadConfig_Precedence(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"output_dir: from-file\nmax_pages: 10\nuser_agent: file-agent\n"), 0o644))
	t.Setenv("NEWSBRIEF_CONFIG", cfgPath)
	t.Setenv("NEWSBRIEF_MAX_PAGES", "20")
	t.Setenv("NEWSBRIEF_LEDGER_DSN", "none")

	cmd := newCrawlCommand()
	require.NoError(t, cmd.Flags().Set("output", "from-flag"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.OutputDir)
	assert.Equal(t, 20, cfg.MaxPages)
	assert.Equal(t, "file-agent", cfg.UserAgent)
	assert.Empty(t, cfg.LedgerDSN, "none disables the ledger")
}

// setConfigFlag sets --config for the duration of a test
func setConfigFlag(t *testing.T, path string) {
	t.Helper()
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

// TestLoadConfig_ConfigFlagOverridesEnv verifies --config wins over
// NEWSBRIEF_CONFIG
func TestLoadConfig_ConfigFlagOverridesEnv(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, "env.yaml")
	flagPath := filepath.Join(dir, "flag.yaml")
	require.NoError(t, os.WriteFile(envPath, []byte("output_dir: from-env-file\n"), 0o644))
	require.NoError(t, os.WriteFile(flagPath, []byte("output_dir: from-flag-file\n"), 0o644))

	t.Setenv("NEWSBRIEF_CONFIG", envPath)
	setConfigFlag(t, flagPath)

	cfg, err := loadConfig(newCrawlCommand())
	require.NoError(t, err)
	assert.Equal(t, "from-flag-file", cfg.OutputDir)

	setConfigFlag(t, "")
	cfg, err = loadConfig(newCrawlCommand())
	require.NoError(t, err)
	assert.Equal(t, "from-env-file", cfg.OutputDir, "env applies without --config")
}

// TestLoadConfig_MalformedEnv verifies malformed numeric environment values
// are rejected like malformed flags
func TestLoadConfig_MalformedEnv(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"NEWSBRIEF_MAX_PAGES", "abc"},
		{"NEWSBRIEF_TIMEOUT", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := loadConfig(newCrawlCommand())
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

// TestLoadConfig_InvalidMaxPages verifies resolved values are validated
func TestLoadConfig_InvalidMaxPages(t *testing.T) {
	isolateEnv(t)

	cmd := newCrawlCommand()
	require.NoError(t, cmd.Flags().Set("max-pages", "0"))

	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

func searchPage(current, status int) string {
	return fmt.Sprintf(`<html><body>
<input type="hidden" id="currentPage" value="%d">
<input type="hidden" id="status" value="%d">
<div class="center_results">
  <div class="articlebox_big">
    <a class="headline_link" href="https://example.com/story-%d" lang="en">Story %d</a>
    <a class="source_link">Example Times</a>
  </div>
</div>
</body></html>`, current, status, current, current)
}

// TestCrawlCommand verifies a crawl writes one set of tables per page
func TestCrawlCommand(t *testing.T) {
	isolateEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, searchPage(1, -1))
		default:
			fmt.Fprint(w, searchPage(2, -2))
		}
	}))
	defer server.Close()

	outDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("NEWSBRIEF_BASE_URL", server.URL)
	t.Setenv("NEWSBRIEF_LEDGER_DSN", dbPath)

	cmd := newCrawlCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--date", "2024-01-15", "--language", "en", "--output", outDir})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Pages:      2")

	for _, name := range []string{
		"articles_en_2024-01-15_p0001.csv.gz",
		"entities_en_2024-01-15_p0001.csv.gz",
		"categories_en_2024-01-15_p0001.csv.gz",
		"articles_en_2024-01-15_p0002.csv.gz",
	} {
		assert.FileExists(t, filepath.Join(outDir, "en", "2024-01-15", name))
	}
	assert.FileExists(t, dbPath)
}

// TestCrawlCommand_RequiresDate verifies --date is mandatory
func TestCrawlCommand_RequiresDate(t *testing.T) {
	isolateEnv(t)
	t.Setenv("NEWSBRIEF_DATE", "")

	cmd := newCrawlCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--output", t.TempDir()})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "--date is required")
}
