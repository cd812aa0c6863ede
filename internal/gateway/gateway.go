// Package gateway provides the HTTP server of dashbot: health, Prometheus
// metrics, Telegram webhooks, generated dashboards and a small admin API.
// It binds to loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/metrics"
	"github.com/flemzord/dashbot/internal/security"
	"gopkg.in/yaml.v3"
)

// WebhookDispatcherService is the AppContext service name of the *WebhookDispatcher.
const WebhookDispatcherService = "gateway.webhook_dispatcher"

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it
// except through the services it registers.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	addr       net.Addr
	dispatcher *WebhookDispatcher
	startedAt  time.Time

	// Resolved lazily at Start() via service registry.
	metrics  *metrics.Metrics
	pipeline *dashboard.Pipeline
	audit    *security.AuditLogger
	limiter  *security.RateLimiter
	redactor *security.Redactor
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.dispatcher = NewWebhookDispatcher(g.logger)
	g.dispatcher.maxBody = g.config.MaxBodyBytes

	// Secrets are known before the handlers: channels register later.
	for source, cfg := range g.config.Webhooks {
		if cfg.Secret != "" {
			g.dispatcher.SetSecret(source, cfg.Secret)
			g.logger.Info("webhook source configured", "source", source)
		}
	}

	ctx.RegisterService(WebhookDispatcherService, g.dispatcher)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves optional services from the
// registry and starts the HTTP server.
func (g *Gateway) Start() error {
	g.metrics, _ = core.Service[*metrics.Metrics](g.appCtx, metrics.ServiceName)
	g.pipeline, _ = core.Service[*dashboard.Pipeline](g.appCtx, dashboard.ServiceName)
	g.audit, _ = core.Service[*security.AuditLogger](g.appCtx, security.AuditService)
	g.limiter, _ = core.Service[*security.RateLimiter](g.appCtx, security.RateLimiterService)
	if r, ok := core.Service[*security.Redactor](g.appCtx, security.RedactorService); ok {
		g.redactor = r
	} else {
		g.redactor = security.NewRedactor()
	}

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway auth not configured, admin endpoints are disabled")
	}

	g.startedAt = time.Now()
	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("gateway listening", "addr", g.addr.String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, nil before Start.
func (g *Gateway) Addr() net.Addr {
	return g.addr
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
