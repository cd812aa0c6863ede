package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/security"
)

// DefaultCleanupSchedule runs the dashboard cleanup every night at 03:00.
const DefaultCleanupSchedule = "0 3 * * *"

// Cleaner removes expired dashboard pages. *dashboard.Pipeline satisfies it.
type Cleaner interface {
	Cleanup(ctx context.Context) (dashboard.CleanupResult, error)
}

// DashboardCleanupJob deletes dated dashboard pages past their retention.
// It complements the cleanup done before every generation, so a bot that
// receives no report still keeps its output directory bounded.
type DashboardCleanupJob struct {
	Cleaner      Cleaner
	Audit        *security.AuditLogger
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultCleanupSchedule
}

// Compile-time interface check.
var _ Job = (*DashboardCleanupJob)(nil)

// Name implements Job.
func (j *DashboardCleanupJob) Name() string { return "dashboard_cleanup" }

// Schedule implements Job.
func (j *DashboardCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultCleanupSchedule
}

// Run implements Job.
func (j *DashboardCleanupJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: dashboard cleanup cancelled: %w", ctx.Err())
	}

	res, err := j.Cleaner.Cleanup(ctx)
	if res.Deleted > 0 {
		j.Logger.Info("cron: removed expired dashboard pages",
			"count", res.Deleted,
			"freed", humanize.Bytes(res.Bytes),
			"cutoff", res.Cutoff.Format("2006-01-02"),
		)
		j.Audit.Log(security.AuditEvent{
			Type:   security.EventCleanup,
			Detail: "cron",
			Metadata: map[string]string{
				"deleted": fmt.Sprint(res.Deleted),
			},
		})
	}
	if err != nil {
		return fmt.Errorf("cron: dashboard cleanup: %w", err)
	}
	return nil
}

// Pruner drops expired rate limit state. *security.RateLimiter satisfies it.
type Pruner interface {
	Prune()
}

// RateLimitPruneJob releases rate limit buckets of chats and addresses
// that went quiet.
type RateLimitPruneJob struct {
	Limiter      Pruner
	ScheduleExpr string // empty = default "*/10 * * * *"
}

// Compile-time interface check.
var _ Job = (*RateLimitPruneJob)(nil)

// Name implements Job.
func (j *RateLimitPruneJob) Name() string { return "ratelimit_prune" }

// Schedule implements Job.
func (j *RateLimitPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/10 * * * *"
}

// Run implements Job.
func (j *RateLimitPruneJob) Run(_ context.Context) error {
	j.Limiter.Prune()
	return nil
}
