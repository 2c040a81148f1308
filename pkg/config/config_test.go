package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "tiktok.com", cfg.Platform.Domain)
	assert.Equal(t, "/video/", cfg.Platform.ItemMarker)
	assert.Equal(t, "https://www.tiktok.com/login", cfg.Platform.LoginURL)

	assert.Len(t, cfg.Collector.Selectors, 6)
	assert.Equal(t, "a[href*='/video/']", cfg.Collector.Selectors[0])
	assert.Equal(t, 50, cfg.Collector.MaxStallAttempts)
	assert.Equal(t, 500, cfg.Collector.MaxTotalAttempts)
	assert.Equal(t, 2*time.Second, cfg.Collector.ScrollDelay)
	assert.Equal(t, 1*time.Second, cfg.Collector.ContainerDelay)

	assert.Equal(t, "yt-dlp", cfg.Download.Tool)
	assert.Equal(t, "%(uploader)s_%(title)s_%(id)s.%(ext)s", cfg.Download.OutputTemplate)
	assert.Equal(t, "best[height<=1080]", cfg.Download.Format)
	assert.Equal(t, 120*time.Second, cfg.Download.ItemTimeout)
	assert.Equal(t, 2*time.Second, cfg.Download.Pause)

	assert.Equal(t, "tiktok_bookmarks", cfg.Output.Directory)
	assert.Equal(t, "extracted_bookmarks.txt", cfg.Output.BackupFile)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOOKMARKDL_OUTPUT_DIR", "/tmp/bookmarks")
	t.Setenv("BOOKMARKDL_ITEM_TIMEOUT", "45s")
	t.Setenv("BOOKMARKDL_MAX_STALL_ATTEMPTS", "7")
	t.Setenv("BOOKMARKDL_HEADLESS", "true")
	t.Setenv("BOOKMARKDL_NOTIFICATIONS_ENABLED", "false")
	t.Setenv("BOOKMARKDL_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/tmp/bookmarks", cfg.Output.Directory)
	assert.Equal(t, 45*time.Second, cfg.Download.ItemTimeout)
	assert.Equal(t, 7, cfg.Collector.MaxStallAttempts)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("BOOKMARKDL_ITEM_TIMEOUT", "soon")
	t.Setenv("BOOKMARKDL_MAX_STALL_ATTEMPTS", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKMARKDL_ITEM_TIMEOUT")
	assert.Contains(t, err.Error(), "BOOKMARKDL_MAX_STALL_ATTEMPTS")
	assert.Equal(t, 120*time.Second, cfg.Download.ItemTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
platform:
  start_url: https://www.tiktok.com/@me?tab=favorites
collector:
  max_stall_attempts: 5
  max_total_attempts: 20
  scroll_delay: 10ms
download:
  item_timeout: 30s
output:
  directory: ./saved
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://www.tiktok.com/@me?tab=favorites", cfg.Platform.StartURL)
	assert.Equal(t, 5, cfg.Collector.MaxStallAttempts)
	assert.Equal(t, 20, cfg.Collector.MaxTotalAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Collector.ScrollDelay)
	assert.Equal(t, 30*time.Second, cfg.Download.ItemTimeout)
	assert.Equal(t, "./saved", cfg.Output.Directory)
	// untouched keys keep their defaults
	assert.Equal(t, "tiktok.com", cfg.Platform.Domain)
	assert.Len(t, cfg.Collector.Selectors, 6)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty domain", func(c *Config) { c.Platform.Domain = "" }, "platform domain is required"},
		{"no selectors", func(c *Config) { c.Collector.Selectors = nil }, "at least one collector selector"},
		{"bad selector", func(c *Config) { c.Collector.Selectors = []string{"a[href"} }, "invalid selector"},
		{"zero stall", func(c *Config) { c.Collector.MaxStallAttempts = 0 }, "max stall attempts must be positive"},
		{"total below stall", func(c *Config) { c.Collector.MaxTotalAttempts = 10 }, "cannot be lower than max stall"},
		{"zero timeout", func(c *Config) { c.Download.ItemTimeout = 0 }, "item timeout must be positive"},
		{"no tool", func(c *Config) { c.Download.Tool = "" }, "download tool is required"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad notification type", func(c *Config) { c.Notifications.NotificationType = "pager" }, "invalid notification type"},
		{"profile required", func(c *Config) { c.Browser.Profile = "" }, "browser profile is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":             "/srv/out",
		"headless":           true,
		"item-timeout":       90 * time.Second,
		"max-stall-attempts": 3,
		"log-level":          "warn",
	})

	assert.Equal(t, "/srv/out", cfg.Output.Directory)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 90*time.Second, cfg.Download.ItemTimeout)
	assert.Equal(t, 3, cfg.Collector.MaxStallAttempts)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// absent keys are ignored
	assert.Equal(t, "yt-dlp", cfg.Download.Tool)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Output.Directory = "elsewhere"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "elsewhere", loaded.Output.Directory)
	assert.Equal(t, cfg.Collector, loaded.Collector)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  directory: from-file\n  backup_file: file.txt\n"), 0644))

	t.Setenv("BOOKMARKDL_OUTPUT_DIR", "from-env")

	cfg, err := Load(path, map[string]interface{}{"backup-file": "flag.txt"})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Output.Directory)
	assert.Equal(t, "flag.txt", cfg.Output.BackupFile)
}
