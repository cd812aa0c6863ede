package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/cron"
)

// Validate checks the structural validity of a Config: the version field,
// the module IDs against the registry, the section settings, and that at
// most one history backend is configured.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	var histories []string
	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
		if core.ModuleID(id).Namespace() == "history" {
			histories = append(histories, id)
		}
	}
	if len(histories) > 1 {
		errs = append(errs, fmt.Errorf("config: only one history backend may be configured, got %s", strings.Join(histories, ", ")))
	}

	if err := cfg.Dashboard.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Dashboard.CleanupSchedule != "" {
		if err := cron.ValidateSchedule(cfg.Dashboard.CleanupSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: dashboard.cleanup_schedule: %w", err))
		}
	}
	if err := cfg.Bot.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ChannelIDs returns the configured modules of the channel namespace.
func ChannelIDs(cfg *Config) []string {
	var ids []string
	for _, id := range Resolve(cfg) {
		if core.ModuleID(id).Namespace() == "channel" {
			ids = append(ids, id)
		}
	}
	return ids
}
