// Package bot holds the conversation logic: it answers /start and turns
// every other text message into a dashboard through the pipeline.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/metrics"
	"github.com/flemzord/dashbot/internal/report"
	"github.com/flemzord/dashbot/internal/router"
	"github.com/flemzord/dashbot/internal/security"
	"github.com/flemzord/dashbot/pkg/message"
)

// Update kinds recorded in metrics.
const (
	kindStart   = "start"
	kindReport  = "report"
	kindLimited = "rate_limited"
)

// Replier delivers outbound messages. *channel.Dispatcher implements it.
type Replier interface {
	Send(ctx context.Context, msg message.OutboundMessage) (string, error)
	Delete(ctx context.Context, channelName string, chat message.Chat, messageID string) error
}

// Generator builds dashboards. *dashboard.Pipeline implements it.
type Generator interface {
	Cleanup(ctx context.Context) (dashboard.CleanupResult, error)
	Generate(ctx context.Context, text string) (*dashboard.Result, error)
	Release(res *dashboard.Result, keepHost bool) error
}

// Handler answers inbound messages.
type Handler struct {
	replier   Replier
	generator Generator
	config    Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     *security.AuditLogger
	limiter   *security.RateLimiter
}

var _ router.Handler = (*Handler)(nil)

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithMetrics records handled updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithAudit records every handled report in the audit log.
func WithAudit(a *security.AuditLogger) Option {
	return func(h *Handler) { h.audit = a }
}

// WithRateLimiter caps reports per chat.
func WithRateLimiter(rl *security.RateLimiter) Option {
	return func(h *Handler) { h.limiter = rl }
}

// New creates a Handler replying through replier.
func New(replier Replier, generator Generator, cfg Config, opts ...Option) *Handler {
	h := &Handler{
		replier:   replier,
		generator: generator,
		config:    cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle implements router.Handler.
func (h *Handler) Handle(ctx context.Context, msg message.InboundMessage) {
	logger := h.logger.With("channel", msg.Channel, "chat_id", msg.Chat.ID, "sender", msg.Sender.ID)

	switch {
	case msg.IsCommand("start"):
		h.count(kindStart)
		h.reply(ctx, logger, message.OutboundMessage{
			Channel: msg.Channel,
			Chat:    msg.Chat,
			Text:    greetingText,
			Format:  message.FormatMarkdown,
		})
	default:
		// Any other text, other commands included, is treated as a report.
		if err := h.limiter.Allow(security.KindReport, msg.Channel+"/"+msg.Chat.ID); err != nil {
			h.count(kindLimited)
			logger.Warn("report rate limited")
			h.auditReport(msg, security.EventRateLimit, "", err.Error())
			h.reply(ctx, logger, message.NewReply(msg, rateLimitedText))
			return
		}
		h.count(kindReport)
		h.handleReport(ctx, logger, msg)
	}
}

func (h *Handler) handleReport(ctx context.Context, logger *slog.Logger, msg message.InboundMessage) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	logger.Info("report received", "bytes", len(msg.Text))

	statusID, err := h.replier.Send(ctx, message.NewReply(msg, statusText))
	if err != nil {
		logger.Warn("status message failed", "error", err)
	}
	defer h.deleteStatus(ctx, logger, msg, statusID)

	if _, err := h.generator.Cleanup(ctx); err != nil {
		logger.Warn("dashboard cleanup failed", "error", err)
	}

	res, err := h.generator.Generate(ctx, msg.Text)
	if err != nil {
		h.auditReport(msg, security.EventReport, "", err.Error())
	} else {
		h.auditReport(msg, security.EventReport, res.RunID, "generated "+res.Date.Format("2006-01-02"))
	}

	var parseErr *report.ParseError
	switch {
	case err == nil:
		defer h.release(logger, res)
		h.sendDashboard(ctx, logger, msg, res)
	case errors.Is(err, dashboard.ErrNoData):
		logger.Warn("report produced no data")
		h.reply(ctx, logger, message.NewReply(msg, noDataText))
	case errors.As(err, &parseErr):
		logger.Warn("report format error", "error", err)
		h.reply(ctx, logger, message.OutboundMessage{
			Channel: msg.Channel,
			Chat:    msg.Chat,
			Text:    parseErrorTitle + literal(parseErr.Err.Error()),
			Format:  message.FormatMarkdown,
		})
	default:
		logger.Error("dashboard generation failed", "error", err)
		h.reply(ctx, logger, message.NewReply(msg, criticalText))
	}
}

func (h *Handler) sendDashboard(ctx context.Context, logger *slog.Logger, msg message.InboundMessage, res *dashboard.Result) {
	logger = logger.With("run_id", res.RunID)
	if res.PublishErr != nil {
		logger.Warn("dashboard generated but not published", "error", res.PublishErr)
	}

	file := res.Attachment()
	if _, err := h.replier.Send(ctx, message.NewDocumentReply(msg, file, readyCaption)); err != nil {
		logger.Error("sending dashboard failed", "error", err, "file", file)
		h.reply(ctx, logger, message.NewReply(msg, criticalText))
		return
	}
	logger.Info("dashboard sent", "pages", len(res.Pages), "published", res.Published, "duration", res.Duration)
}

// release runs whether or not the document went out.
func (h *Handler) release(logger *slog.Logger, res *dashboard.Result) {
	if err := h.generator.Release(res, h.config.KeepHostFile); err != nil {
		logger.Warn("removing dashboard files failed", "error", err, "file", res.Host)
	}
}

func (h *Handler) deleteStatus(ctx context.Context, logger *slog.Logger, msg message.InboundMessage, id string) {
	if id == "" {
		return
	}
	// The status message must go even when generation ran out of time.
	ctx = context.WithoutCancel(ctx)
	if err := h.replier.Delete(ctx, msg.Channel, msg.Chat, id); err != nil {
		logger.Warn("deleting status message failed", "error", err)
	}
}

func (h *Handler) reply(ctx context.Context, logger *slog.Logger, out message.OutboundMessage) {
	if _, err := h.replier.Send(ctx, out); err != nil {
		logger.Error("reply failed", "error", err)
	}
}

func (h *Handler) auditReport(msg message.InboundMessage, typ security.EventType, runID, detail string) {
	h.audit.Log(security.AuditEvent{
		Type:     typ,
		Channel:  msg.Channel,
		ChatID:   msg.Chat.ID,
		SenderID: msg.Sender.ID,
		RunID:    runID,
		Detail:   detail,
	})
}

func (h *Handler) count(kind string) {
	if h.metrics != nil {
		h.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	}
}

// literal keeps error details from being read as markup.
var literal = strings.NewReplacer("`", "'", "**", "*").Replace
