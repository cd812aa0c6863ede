package bot

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the update-handling settings of the bot.
type Config struct {
	// Workers is the number of updates handled concurrently.
	Workers int `yaml:"workers"`
	// InboxSize is the number of updates queued before new ones are dropped.
	InboxSize int `yaml:"inbox_size"`
	// MaxReportBytes rejects larger report texts.
	MaxReportBytes int `yaml:"max_report_bytes"`
	// KeepHostFile leaves the slideshow host file in the output directory
	// after it has been sent, so the gateway can keep serving it.
	KeepHostFile bool `yaml:"keep_host_file"`
	// Timeout bounds the handling of one report.
	Timeout time.Duration `yaml:"timeout"`
}

// Defaults returns the configuration used when the bot section is omitted.
func Defaults() Config {
	return Config{
		Workers:        4,
		InboxSize:      64,
		MaxReportBytes: 64 << 10,
		Timeout:        2 * time.Minute,
	}
}

// Validate checks the bot settings.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("bot: workers must be at least 1, got %d", c.Workers))
	}
	if c.InboxSize < 1 {
		errs = append(errs, fmt.Errorf("bot: inbox_size must be at least 1, got %d", c.InboxSize))
	}
	if c.MaxReportBytes < 1 {
		errs = append(errs, fmt.Errorf("bot: max_report_bytes must be positive, got %d", c.MaxReportBytes))
	}
	if c.Timeout < time.Second {
		errs = append(errs, fmt.Errorf("bot: timeout must be at least 1s, got %s", c.Timeout))
	}
	return errors.Join(errs...)
}
