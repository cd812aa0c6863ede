package dashboard

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// Defaults used when the corresponding Config field is empty.
const (
	DefaultPrefix         = "dashboard_data"
	DefaultHostFile       = "latest_dashboard.html"
	DefaultInterval       = 15 * time.Second
	DefaultChartHeight    = 720
	DefaultCompletedColor = "rgb(136, 190, 67)"
	DefaultMissedColor    = "rgb(240, 102, 0)"
	DefaultBackgroundURL  = "https://disk.yandex.ru/i/wAjsKqMrRGPpkQ"
	DefaultRetentionDays  = 7
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config is the top-level "dashboard" section of the configuration.
type Config struct {
	// OutputDir receives the generated pages. Defaults to the application output directory.
	OutputDir string `yaml:"output_dir"`

	// Prefix starts every dated page file name.
	Prefix string `yaml:"prefix"`

	// HostFile is the slideshow page name.
	HostFile string `yaml:"host_file"`

	// Interval is the time each slide stays on screen.
	Interval time.Duration `yaml:"interval"`

	// ChartHeight is the plot height in pixels.
	ChartHeight int `yaml:"chart_height"`

	CompletedColor string `yaml:"completed_color"`
	MissedColor    string `yaml:"missed_color"`
	BackgroundURL  string `yaml:"background_url"`

	// RetentionDays is how many days of dated pages are kept on disk.
	RetentionDays int `yaml:"retention_days"`

	// CleanupSchedule is an optional cron expression for periodic cleanup.
	CleanupSchedule string `yaml:"cleanup_schedule"`

	// RemoteDir is the upload directory handed to the publisher.
	// Empty means the publisher's own default.
	RemoteDir string `yaml:"remote_dir"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.HostFile == "" {
		c.HostFile = DefaultHostFile
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ChartHeight <= 0 {
		c.ChartHeight = DefaultChartHeight
	}
	if c.CompletedColor == "" {
		c.CompletedColor = DefaultCompletedColor
	}
	if c.MissedColor == "" {
		c.MissedColor = DefaultMissedColor
	}
	if c.BackgroundURL == "" {
		c.BackgroundURL = DefaultBackgroundURL
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = DefaultRetentionDays
	}
}

// Validate checks a defaulted Config.
func (c *Config) Validate() error {
	var errs []error
	if !prefixPattern.MatchString(c.Prefix) {
		errs = append(errs, fmt.Errorf("dashboard: prefix %q may only contain letters, digits, '_' and '-'", c.Prefix))
	}
	if c.HostFile == "" || c.HostFile != filepath.Base(c.HostFile) {
		errs = append(errs, fmt.Errorf("dashboard: host_file %q must be a plain file name", c.HostFile))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("dashboard: retention_days must be non-negative, got %d", c.RetentionDays))
	}
	if c.Interval < time.Second {
		errs = append(errs, fmt.Errorf("dashboard: interval must be at least 1s, got %s", c.Interval))
	}
	return errors.Join(errs...)
}
