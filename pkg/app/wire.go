package app

import (
	"context"
	"fmt"

	"github.com/flemzord/dashbot/internal/bot"
	"github.com/flemzord/dashbot/internal/channel"
	"github.com/flemzord/dashbot/internal/config"
	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/cron"
	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/history"
	"github.com/flemzord/dashbot/internal/publish"
	"github.com/flemzord/dashbot/internal/router"
	"github.com/flemzord/dashbot/internal/security"
)

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// schedulerModule puts the cron scheduler in the App lifecycle.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *schedulerModule) Start() error { return m.scheduler.Start() }

func (m *schedulerModule) Stop(ctx context.Context) error { return m.scheduler.Stop(ctx) }

// wirePipeline builds the dashboard pipeline on top of the provisioned
// history store and optional publisher, and registers it as a service.
// Without a history module the CSV files of the data directory are used.
func wirePipeline(rt *Runtime, cfg *config.Config) (*dashboard.Pipeline, error) {
	appCtx := rt.Context
	logger := rt.Logger

	store, ok := core.Service[history.Store](appCtx, history.ServiceName)
	if !ok {
		store = history.NewCSVStoreInDir(appCtx.DataDir)
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
		logger.Info("no history module configured, using csv files", "dir", appCtx.DataDir)
	}

	renderer, err := dashboard.NewRenderer(cfg.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	opts := []dashboard.PipelineOption{
		dashboard.WithLogger(logger.With("component", "dashboard")),
		dashboard.WithMetrics(rt.Metrics),
	}
	if pub, ok := core.Service[publish.Publisher](appCtx, publish.ServiceName); ok {
		opts = append(opts, dashboard.WithPublisher(pub))
	} else {
		logger.Info("no publish module configured, dashboards stay local")
	}

	pipeline := dashboard.NewPipeline(store, renderer, appCtx.OutputDir, opts...)
	appCtx.RegisterService(dashboard.ServiceName, pipeline)
	return pipeline, nil
}

// wireBot creates the Dispatcher, the report handler and the Router, wires
// them to every loaded channel, and appends the router to the app lifecycle.
// Must be called after LoadModules and before Start.
func wireBot(rt *Runtime, ids []string, auditLogger *security.AuditLogger, rateLimiter *security.RateLimiter) error {
	logger := rt.Logger
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel

	for _, id := range ids {
		mod, ok := rt.App.Module(id)
		if !ok {
			continue
		}
		if ch, ok := mod.(channel.Channel); ok {
			// Register under the full module ID (e.g. "channel.telegram") because
			// that is what the channel sets as msg.Channel in inbound messages.
			if err := dispatcher.Register(id, ch); err != nil {
				return fmt.Errorf("registering channel %s: %w", id, err)
			}
			channels = append(channels, ch)
			logger.Info("router: registered channel", "channel", id)
		}
	}

	if len(channels) == 0 {
		logger.Info("router: no channels found, skipping router wiring")
		return nil
	}

	handler := bot.New(dispatcher, rt.Pipeline, rt.Config.Bot,
		bot.WithLogger(logger.With("component", "bot")),
		bot.WithMetrics(rt.Metrics),
		bot.WithAudit(auditLogger),
		bot.WithRateLimiter(rateLimiter),
	)

	r, err := router.NewRouter(router.Config{
		WorkerCount:    rt.Config.Bot.Workers,
		InboxSize:      rt.Config.Bot.InboxSize,
		Handler:        handler,
		Logger:         logger.With("component", "router"),
		MaxMessageSize: rt.Config.Bot.MaxReportBytes,
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	// Wire each channel's inbox to the router.
	for _, ch := range channels {
		ch.SetInbox(r.Submit)
	}

	rt.App.AppendModule("router", &routerModule{
		router: r,
		ctx:    context.Background(),
	})

	logger.Info("router: wired", "channels", len(channels))
	return nil
}

// wireScheduler registers the periodic jobs and appends the scheduler to
// the app lifecycle.
func wireScheduler(rt *Runtime, auditLogger *security.AuditLogger, rateLimiter *security.RateLimiter) error {
	logger := rt.Logger.With("component", "cron")
	s := cron.NewScheduler(logger, cron.WithMetrics(rt.Metrics))

	jobs := []cron.Job{
		&cron.DashboardCleanupJob{
			Cleaner:      rt.Pipeline,
			Audit:        auditLogger,
			Logger:       logger,
			ScheduleExpr: rt.Config.Dashboard.CleanupSchedule,
		},
		&cron.RateLimitPruneJob{Limiter: rateLimiter},
	}
	for _, j := range jobs {
		if err := s.RegisterJob(j); err != nil {
			return err
		}
	}

	rt.App.AppendModule("cron", &schedulerModule{scheduler: s})
	return nil
}
