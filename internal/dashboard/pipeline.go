package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flemzord/dashbot/internal/history"
	"github.com/flemzord/dashbot/internal/metrics"
	"github.com/flemzord/dashbot/internal/publish"
	"github.com/flemzord/dashbot/internal/report"
	"github.com/flemzord/dashbot/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is the AppContext service name of the *Pipeline.
const ServiceName = "dashboard.pipeline"

// ErrNoData is returned by Generate when neither history holds any row.
var ErrNoData = errors.New("dashboard: not enough data to build charts")

// Result describes one successful generation.
type Result struct {
	RunID string
	Date  time.Time
	Pages []string
	Host  string

	// Document is a private copy of Host taken while the run held the
	// pipeline, so a later run cannot change or remove it before delivery.
	// Release deletes it.
	Document string

	// Published is true when every file reached the remote host.
	Published bool
	// PublishErr holds the upload failure, if any. It never fails Generate.
	PublishErr error

	Duration time.Duration
}

// Attachment returns the file to hand to the user: the private copy when
// there is one, the shared host page otherwise.
func (r *Result) Attachment() string {
	if r.Document != "" {
		return r.Document
	}
	return r.Host
}

// Pipeline turns report text into a published dashboard. Calls to Generate,
// Cleanup and Release are serialized since they share history and output
// files.
type Pipeline struct {
	mu sync.Mutex
	// latestRun is the run that last wrote the shared host page.
	latestRun string

	store     history.Store
	renderer  *Renderer
	publisher publish.Publisher
	outDir    string

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithPublisher uploads generated files after each run.
func WithPublisher(p publish.Publisher) PipelineOption {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(pl *Pipeline) { pl.logger = l }
}

// WithMetrics records generation metrics.
func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(pl *Pipeline) { pl.metrics = m }
}

// WithClock overrides the time source used by Cleanup.
func WithClock(now func() time.Time) PipelineOption {
	return func(pl *Pipeline) { pl.now = now }
}

// NewPipeline creates a pipeline writing into outDir.
func NewPipeline(store history.Store, renderer *Renderer, outDir string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:    store,
		renderer: renderer,
		outDir:   outDir,
		logger:   slog.Default(),
		tracer:   telemetry.Tracer("github.com/flemzord/dashbot/internal/dashboard"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OutputDir returns the directory receiving generated files.
func (p *Pipeline) OutputDir() string {
	return p.outDir
}

// RetentionDays returns the configured retention of dated pages.
func (p *Pipeline) RetentionDays() int {
	return p.renderer.cfg.RetentionDays
}

// Cleanup removes dated pages older than the configured retention.
func (p *Pipeline) Cleanup(ctx context.Context) (CleanupResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupLocked(ctx, p.renderer.cfg.RetentionDays)
}

// CleanupKeep is Cleanup with an explicit retention in days.
func (p *Pipeline) CleanupKeep(ctx context.Context, keepDays int) (CleanupResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupLocked(ctx, keepDays)
}

func (p *Pipeline) cleanupLocked(ctx context.Context, keepDays int) (CleanupResult, error) {
	_, span := p.tracer.Start(ctx, "dashboard.Cleanup", trace.WithAttributes(
		attribute.Int("keep_days", keepDays),
	))
	defer span.End()

	res, err := Cleanup(p.logger, p.outDir, p.renderer.cfg.Prefix, keepDays, p.now())
	if p.metrics != nil {
		p.metrics.CleanupDeleted.Add(float64(res.Deleted))
	}
	span.SetAttributes(attribute.Int("deleted", res.Deleted))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// Generate parses text, stores it in the history, renders the dashboard
// from the full history and publishes it. Parse failures are returned as
// *report.ParseError. ErrNoData is returned when there is nothing to chart.
func (p *Pipeline) Generate(ctx context.Context, text string) (res *Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	ctx, span := p.tracer.Start(ctx, "dashboard.Generate", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		p.observe(start, err)
	}()

	rep, err := report.Parse(text)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("report_date", rep.Date.Format(fileDateLayout)))
	logger.Info("report parsed",
		"date", rep.Date.Format(report.DateLayout),
		"employees", len(rep.Staff),
	)

	if err := history.SaveReport(ctx, p.store, rep); err != nil {
		return nil, fmt.Errorf("dashboard: generate: save history: %w", err)
	}

	staff, err := p.store.Staff(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: generate: load staff history: %w", err)
	}
	metricsHistory, err := p.store.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: generate: load metrics history: %w", err)
	}
	if len(staff) == 0 && len(metricsHistory) == 0 {
		logger.Warn("not enough data to build charts")
		return nil, ErrNoData
	}

	pages, host, err := p.renderer.Render(ctx, staff, metricsHistory, rep.Date, p.outDir)
	if err != nil {
		return nil, fmt.Errorf("dashboard: generate: %w", err)
	}
	if p.metrics != nil {
		p.metrics.PagesRendered.Add(float64(len(pages)))
	}
	span.SetAttributes(attribute.Int("pages", len(pages)))

	doc, err := snapshot(host, runID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: generate: %w", err)
	}
	p.latestRun = runID

	res = &Result{
		RunID:    runID,
		Date:     rep.Date,
		Pages:    pages,
		Host:     host,
		Document: doc,
	}

	if p.publisher != nil {
		res.PublishErr = p.publish(ctx, logger, append(pages[:len(pages):len(pages)], host))
		res.Published = res.PublishErr == nil
	}

	res.Duration = time.Since(start)
	logger.Info("dashboard generated",
		"host", host,
		"pages", len(pages),
		"published", res.Published,
		"duration", res.Duration,
	)
	return res, nil
}

// Release deletes the private copy of res. Unless keepHost is set it also
// removes the shared host page, provided no later run has rewritten it.
func (p *Pipeline) Release(res *Result, keepHost bool) error {
	var errs []error
	if res.Document != "" {
		if err := os.RemoveAll(filepath.Dir(res.Document)); err != nil {
			errs = append(errs, fmt.Errorf("dashboard: release: %w", err))
		}
	}
	if !keepHost {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.latestRun == res.RunID {
			if err := os.Remove(res.Host); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("dashboard: release: %w", err))
			}
			p.latestRun = ""
		}
	}
	return errors.Join(errs...)
}

// snapshot copies the host page into a fresh temporary directory, keeping
// its base name so the recipient sees the usual file name.
func snapshot(host, runID string) (string, error) {
	data, err := os.ReadFile(host)
	if err != nil {
		return "", fmt.Errorf("snapshot host page: %w", err)
	}
	dir, err := os.MkdirTemp("", "dashbot-"+runID+"-")
	if err != nil {
		return "", fmt.Errorf("snapshot host page: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(host))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("snapshot host page: %w", err)
	}
	return path, nil
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, files []string) error {
	ctx, span := p.tracer.Start(ctx, "dashboard.Publish", trace.WithAttributes(
		attribute.Int("files", len(files)),
	))
	defer span.End()

	err := p.publisher.Publish(ctx, p.renderer.cfg.RemoteDir, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("dashboard upload failed", "error", err)
		if p.metrics != nil {
			p.metrics.PublishTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return err
	}

	if p.metrics != nil {
		p.metrics.PublishTotal.WithLabelValues(metrics.ResultOK).Inc()
		for _, f := range files {
			if info, err := os.Stat(f); err == nil {
				p.metrics.PublishedBytes.Add(float64(info.Size()))
			}
		}
	}
	return nil
}

func (p *Pipeline) observe(start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.GenerationDuration.Observe(time.Since(start).Seconds())

	var parseErr *report.ParseError
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, ErrNoData):
		result = metrics.ResultNoData
	case errors.As(err, &parseErr):
		result = metrics.ResultParseError
	default:
		result = metrics.ResultError
	}
	p.metrics.GenerationsTotal.WithLabelValues(result).Inc()
}
