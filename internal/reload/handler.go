package reload

import (
	"context"
	"fmt"

	"github.com/flemzord/dashbot/internal/config"
)

// Handler decides whether a changed configuration file may replace the
// running one.
type Handler struct {
	validate func(*config.Config) error
}

// NewHandler creates a handler that applies config.Validate.
func NewHandler() *Handler {
	return &Handler{validate: config.Validate}
}

// Check loads and validates configPath. A non-nil config means the caller
// can rebuild the application with it; on error the running configuration
// stays in place.
func (h *Handler) Check(ctx context.Context, configPath string) (*config.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reload: context cancelled before reload: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("reload: loading config: %w", err)
	}
	if err := h.validate(cfg); err != nil {
		return nil, fmt.Errorf("reload: validating config: %w", err)
	}
	return cfg, nil
}
