package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for bookmarkdl
type Config struct {
	// Target platform shape and entry points
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Link collection loop
	Collector CollectorConfig `yaml:"collector" json:"collector"`

	// External retrieval tool
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output locations
	Output OutputConfig `yaml:"output" json:"output"`

	// Run history database
	History HistoryConfig `yaml:"history" json:"history"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PlatformConfig describes what an item URL looks like and where to find them
type PlatformConfig struct {
	Domain     string `yaml:"domain" json:"domain"`
	ItemMarker string `yaml:"item_marker" json:"item_marker"`
	LoginURL   string `yaml:"login_url" json:"login_url"`
	StartURL   string `yaml:"start_url" json:"start_url"`
}

// BrowserConfig holds rendering session options
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" json:"headless"`
	Bin             string        `yaml:"bin" json:"bin"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	Stealth         bool          `yaml:"stealth" json:"stealth"`
	LaunchAttempts  int           `yaml:"launch_attempts" json:"launch_attempts"`
	LoginTimeout    time.Duration `yaml:"login_timeout" json:"login_timeout"`
	RememberSession bool          `yaml:"remember_session" json:"remember_session"`
	Profile         string        `yaml:"profile" json:"profile"`
}

// CollectorConfig tunes the scroll-and-scan loop
type CollectorConfig struct {
	Selectors          []string      `yaml:"selectors" json:"selectors"`
	ContainerSelectors []string      `yaml:"container_selectors" json:"container_selectors"`
	MaxStallAttempts   int           `yaml:"max_stall_attempts" json:"max_stall_attempts"`
	MaxTotalAttempts   int           `yaml:"max_total_attempts" json:"max_total_attempts"`
	ScrollDelay        time.Duration `yaml:"scroll_delay" json:"scroll_delay"`
	ContainerDelay     time.Duration `yaml:"container_delay" json:"container_delay"`
}

// DownloadConfig holds retrieval tool settings
type DownloadConfig struct {
	Tool           string        `yaml:"tool" json:"tool"`
	OutputTemplate string        `yaml:"output_template" json:"output_template"`
	Format         string        `yaml:"format" json:"format"`
	ItemTimeout    time.Duration `yaml:"item_timeout" json:"item_timeout"`
	Pause          time.Duration `yaml:"pause" json:"pause"`
}

// OutputConfig holds output locations
type OutputConfig struct {
	Directory  string `yaml:"directory" json:"directory"`
	BackupFile string `yaml:"backup_file" json:"backup_file"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the reference defaults
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			Domain:     "tiktok.com",
			ItemMarker: "/video/",
			LoginURL:   "https://www.tiktok.com/login",
			StartURL:   "",
		},
		Browser: BrowserConfig{
			Headless:        false,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Stealth:         true,
			LaunchAttempts:  2,
			LoginTimeout:    10 * time.Second,
			RememberSession: true,
			Profile:         "default",
		},
		Collector: CollectorConfig{
			Selectors: []string{
				"a[href*='/video/']",
				"a[href*='@'][href*='/video/']",
				"[data-e2e='bookmark-item'] a",
				".video-feed-item a",
				"div[data-e2e] a[href*='/video/']",
				"a[href*='tiktok.com']",
			},
			ContainerSelectors: []string{
				"[data-e2e='bookmark-list']",
				".bookmark-list",
				".video-feed",
			},
			MaxStallAttempts: 50,
			MaxTotalAttempts: 500,
			ScrollDelay:      2 * time.Second,
			ContainerDelay:   1 * time.Second,
		},
		Download: DownloadConfig{
			Tool:           "yt-dlp",
			OutputTemplate: "%(uploader)s_%(title)s_%(id)s.%(ext)s",
			Format:         "best[height<=1080]",
			ItemTimeout:    120 * time.Second,
			Pause:          2 * time.Second,
		},
		Output: OutputConfig{
			Directory:  "tiktok_bookmarks",
			BackupFile: "extracted_bookmarks.txt",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "",
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("BOOKMARKDL_DOMAIN"); v != "" {
		c.Platform.Domain = v
	}
	if v := os.Getenv("BOOKMARKDL_START_URL"); v != "" {
		c.Platform.StartURL = v
	}
	if v := os.Getenv("BOOKMARKDL_BROWSER_BIN"); v != "" {
		c.Browser.Bin = v
	}
	if v := os.Getenv("BOOKMARKDL_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("BOOKMARKDL_PROFILE"); v != "" {
		c.Browser.Profile = v
	}
	if v := os.Getenv("BOOKMARKDL_TOOL"); v != "" {
		c.Download.Tool = v
	}
	if v := os.Getenv("BOOKMARKDL_ITEM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BOOKMARKDL_ITEM_TIMEOUT: %w", err))
		} else {
			c.Download.ItemTimeout = d
		}
	}
	if v := os.Getenv("BOOKMARKDL_MAX_STALL_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BOOKMARKDL_MAX_STALL_ATTEMPTS: %w", err))
		} else {
			c.Collector.MaxStallAttempts = n
		}
	}
	if v := os.Getenv("BOOKMARKDL_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("BOOKMARKDL_BACKUP_FILE"); v != "" {
		c.Output.BackupFile = v
	}
	if v := os.Getenv("BOOKMARKDL_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("BOOKMARKDL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".bookmarkdl.yaml",
		".bookmarkdl.yml",
		filepath.Join(home, ".config", "bookmarkdl", "config.yaml"),
		filepath.Join(home, ".config", "bookmarkdl", "config.yml"),
		filepath.Join(home, ".bookmarkdl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Platform.Domain == "" {
		errs = append(errs, errors.New("platform domain is required"))
	}
	if c.Platform.ItemMarker == "" {
		errs = append(errs, errors.New("platform item marker is required"))
	}

	if c.Browser.LaunchAttempts <= 0 {
		errs = append(errs, errors.New("browser launch attempts must be positive"))
	}
	if c.Browser.RememberSession && c.Browser.Profile == "" {
		errs = append(errs, errors.New("browser profile is required when remembering sessions"))
	}

	if len(c.Collector.Selectors) == 0 {
		errs = append(errs, errors.New("at least one collector selector is required"))
	}
	for _, sel := range append(append([]string{}, c.Collector.Selectors...), c.Collector.ContainerSelectors...) {
		if _, err := cascadia.Compile(sel); err != nil {
			errs = append(errs, fmt.Errorf("invalid selector %q: %w", sel, err))
		}
	}
	if c.Collector.MaxStallAttempts <= 0 {
		errs = append(errs, errors.New("max stall attempts must be positive"))
	}
	if c.Collector.MaxTotalAttempts < c.Collector.MaxStallAttempts {
		errs = append(errs, errors.New("max total attempts cannot be lower than max stall attempts"))
	}
	if c.Collector.ScrollDelay < 0 || c.Collector.ContainerDelay < 0 {
		errs = append(errs, errors.New("collector delays cannot be negative"))
	}

	if c.Download.Tool == "" {
		errs = append(errs, errors.New("download tool is required"))
	}
	if c.Download.OutputTemplate == "" {
		errs = append(errs, errors.New("download output template is required"))
	}
	if c.Download.ItemTimeout <= 0 {
		errs = append(errs, errors.New("item timeout must be positive"))
	}
	if c.Download.Pause < 0 {
		errs = append(errs, errors.New("pause between items cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.BackupFile == "" {
		errs = append(errs, errors.New("backup file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in flags are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["backup-file"].(string); ok && v != "" {
		c.Output.BackupFile = v
	}
	if v, ok := flags["start-url"].(string); ok && v != "" {
		c.Platform.StartURL = v
	}
	if v, ok := flags["profile"].(string); ok && v != "" {
		c.Browser.Profile = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["tool"].(string); ok && v != "" {
		c.Download.Tool = v
	}
	if v, ok := flags["item-timeout"].(time.Duration); ok && v > 0 {
		c.Download.ItemTimeout = v
	}
	if v, ok := flags["max-stall-attempts"].(int); ok && v > 0 {
		c.Collector.MaxStallAttempts = v
	}
	if v, ok := flags["max-total-attempts"].(int); ok && v > 0 {
		c.Collector.MaxTotalAttempts = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".bookmarkdl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
