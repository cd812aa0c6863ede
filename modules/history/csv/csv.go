// Package csv provides the "history.csv" module: report history kept in two
// CSV files, compatible with the files written by earlier bot versions.
package csv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/history"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the CSV history module configuration.
type Config struct {
	// Dir holds both history files. Defaults to the application data directory.
	Dir string `yaml:"dir"`

	// StaffFile and MetricsFile override the file names inside Dir.
	StaffFile   string `yaml:"staff_file"`
	MetricsFile string `yaml:"metrics_file"`
}

func (c *Config) defaults(dataDir string) {
	if c.Dir == "" {
		c.Dir = dataDir
	}
	if c.StaffFile == "" {
		c.StaffFile = history.StaffFile
	}
	if c.MetricsFile == "" {
		c.MetricsFile = history.MetricsFile
	}
}

// Module registers a history.CSVStore as the "history.store" service.
type Module struct {
	config Config
	logger *slog.Logger
	store  *history.CSVStore
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "history.csv",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("history.csv: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults(ctx.DataDir)
	m.logger = ctx.Logger

	if err := os.MkdirAll(m.config.Dir, 0o755); err != nil {
		return fmt.Errorf("history.csv: create directory %s: %w", m.config.Dir, err)
	}

	m.store = history.NewCSVStore(
		filepath.Join(m.config.Dir, m.config.StaffFile),
		filepath.Join(m.config.Dir, m.config.MetricsFile),
	)
	ctx.RegisterService(history.ServiceName, m.store)

	m.logger.Info("csv history provisioned", "dir", m.config.Dir)
	return nil
}

// Validate implements core.Validator. It reads both files once so that a
// corrupted history is reported at startup rather than on the first report.
func (m *Module) Validate() error {
	if filepath.Base(m.config.StaffFile) != m.config.StaffFile ||
		filepath.Base(m.config.MetricsFile) != m.config.MetricsFile {
		return fmt.Errorf("history.csv: staff_file and metrics_file must be plain file names")
	}
	if m.config.StaffFile == m.config.MetricsFile {
		return fmt.Errorf("history.csv: staff_file and metrics_file must differ")
	}
	if _, err := m.store.Staff(context.Background()); err != nil {
		return err
	}
	if _, err := m.store.Metrics(context.Background()); err != nil {
		return err
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Store returns the provisioned store.
func (m *Module) Store() history.Store {
	return m.store
}
