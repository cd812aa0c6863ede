// Package app assembles dashbot from its configuration: logging, security
// services, modules, the dashboard pipeline, the bot router and the
// scheduler. It is the shared entry point of the CLI and the OS service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/flemzord/dashbot/internal/config"
	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/metrics"
	"github.com/flemzord/dashbot/internal/reload"
	"github.com/flemzord/dashbot/internal/security"
	"github.com/flemzord/dashbot/internal/telemetry"
)

// RunParams configures the application.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.FindPath searches the standard locations.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the data_dir setting.
	DataDir string

	// OutputDir overrides dashboard.output_dir.
	OutputDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// LogWriter receives log output. Defaults to os.Stderr.
	LogWriter io.Writer

	// Offline only loads history and publish modules, for one-shot
	// commands that must not poll Telegram or bind the gateway.
	Offline bool

	// ReloadInterval is how often Run polls the config file for changes.
	// Zero uses the watcher default.
	ReloadInterval time.Duration
}

// Runtime is an assembled, not yet started, application.
type Runtime struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	App        *core.App
	Context    *core.AppContext
	Pipeline   *dashboard.Pipeline
	Metrics    *metrics.Metrics

	closers []func(context.Context) error
}

// Run assembles the application, starts all modules, and blocks until ctx
// is cancelled or a shutdown signal is received. A valid configuration
// change (file modification or SIGHUP) rebuilds the application in place;
// an invalid one is logged and the running instance is kept.
func Run(ctx context.Context, params RunParams) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		reloaded, err := runOnce(ctx, params)
		if err != nil || !reloaded || ctx.Err() != nil {
			return err
		}
	}
}

// runOnce runs one Runtime and reports whether it ended because of a
// configuration reload.
func runOnce(ctx context.Context, params RunParams) (bool, error) {
	rt, err := Build(ctx, params)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			rt.Logger.Error("cleanup failed", "error", err)
		}
	}()

	if len(config.ChannelIDs(rt.Config)) == 0 {
		rt.Logger.Warn("no channel module configured, only the gateway and scheduler will run")
	}
	rt.Logger.Info("dashbot starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", rt.ConfigPath,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := reload.NewWatcher(reload.WatcherConfig{
		ConfigPath:   rt.ConfigPath,
		PollInterval: params.ReloadInterval,
		OnSignal:     true,
	})
	watcher.Start(runCtx)
	defer watcher.Stop()

	var reloaded atomic.Bool
	go watchReloads(runCtx, rt.Logger, watcher, reload.NewHandler(), func() {
		reloaded.Store(true)
		cancel()
	})

	if err := rt.App.Run(runCtx); err != nil {
		return false, err
	}
	return reloaded.Load(), nil
}

// watchReloads calls restart for the first change event whose
// configuration loads and validates.
func watchReloads(ctx context.Context, logger *slog.Logger, w *reload.Watcher, h *reload.Handler, restart func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-w.Events():
			if _, err := h.Check(ctx, evt.ConfigPath); err != nil {
				logger.Error("config reload rejected, keeping current configuration",
					"trigger", evt.Type, "error", err)
				continue
			}
			logger.Info("configuration changed, rebuilding", "trigger", evt.Type)
			restart()
			return
		}
	}
}

// Build loads and validates the configuration, then provisions every
// configured module and wires the pipeline, bot and scheduler around them.
// The caller must Close the returned Runtime.
func Build(ctx context.Context, params RunParams) (*Runtime, error) {
	cfgPath, err := config.FindPath(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// Scrub secrets from logs before anything gets logged.
	redactor := security.NewRedactor()
	redactor.AddLiteral(config.Secrets(cfg)...)
	logger := NewLogger(params.LogWriter, params.LogLevel, redactor)

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: cfgPath,
		Logger:     logger,
		Metrics:    metrics.New(),
	}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close(context.Background())
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, params.Version)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, shutdownTracing)

	auditCfg := security.AuditLoggerConfig{Redactor: redactor}
	if cfg.Security.AuditLog != "" {
		f, err := openAuditLog(cfg.Security.AuditLog)
		if err != nil {
			return nil, err
		}
		auditCfg.Writer = f
		rt.closers = append(rt.closers, func(context.Context) error { return f.Close() })
	}
	auditLogger := security.NewAuditLogger(auditCfg)
	rateLimiter := security.NewRateLimiter(cfg.Security.RateLimits)

	dataDir := firstNonEmpty(params.DataDir, cfg.DataDir, DefaultDataDir())
	outputDir := firstNonEmpty(params.OutputDir, cfg.Dashboard.OutputDir, DefaultOutputDir())

	appCtx := core.NewAppContext(logger, dataDir, outputDir).WithModuleConfigs(cfg.Modules)
	rt.Context = appCtx

	// Register shared services for cross-module discovery.
	appCtx.RegisterService(config.ServiceName, cfg)
	appCtx.RegisterService(metrics.ServiceName, rt.Metrics)
	appCtx.RegisterService(security.RedactorService, redactor)
	appCtx.RegisterService(security.AuditService, auditLogger)
	appCtx.RegisterService(security.RateLimiterService, rateLimiter)

	ids := config.Resolve(cfg)
	if params.Offline {
		ids = slices.DeleteFunc(ids, func(id string) bool {
			ns := core.ModuleID(id).Namespace()
			return ns != "history" && ns != "publish"
		})
	}

	rt.App = core.NewApp(appCtx)
	if err := rt.App.LoadModules(ids); err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error {
		rt.App.Stop()
		return nil
	})

	pipeline, err := wirePipeline(rt, cfg)
	if err != nil {
		return nil, err
	}
	rt.Pipeline = pipeline

	if !params.Offline {
		if err := wireBot(rt, ids, auditLogger, rateLimiter); err != nil {
			return nil, err
		}
		if err := wireScheduler(rt, auditLogger, rateLimiter); err != nil {
			return nil, err
		}
	}

	ok = true
	return rt, nil
}

// Close releases what Build acquired, in reverse order.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// NewLogger returns a text logger on w (stderr when nil) whose output goes
// through the redactor. Stderr is unbuffered, so lines show up immediately
// in container logs.
func NewLogger(w io.Writer, level slog.Level, redactor *security.Redactor) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

func openAuditLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	return f, nil
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/dashbot if set, otherwise ~/.local/share/dashbot, following the XDG base directory layout.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "dashbot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "dashbot")
}

// DefaultOutputDir returns ./dashboards under the working directory.
func DefaultOutputDir() string {
	dir, _ := os.Getwd()
	return filepath.Join(dir, "dashboards")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
