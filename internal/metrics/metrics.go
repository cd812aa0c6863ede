// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dashbot"

// ServiceName is the AppContext service name of the shared *Metrics.
const ServiceName = "metrics"

// Generation results used as the "result" label of GenerationsTotal.
const (
	ResultOK         = "ok"
	ResultNoData     = "no_data"
	ResultParseError = "parse_error"
	ResultError      = "error"
)

// Metrics groups every collector of the process around a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	PagesRendered      prometheus.Counter
	PublishTotal       *prometheus.CounterVec
	PublishedBytes     prometheus.Counter
	CleanupDeleted     prometheus.Counter
	UpdatesTotal       *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	CronRuns           *prometheus.CounterVec
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "generations_total",
			Help:      "Dashboard generations by result.",
		}, []string{"result"}),

		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "generation_duration_seconds",
			Help:      "Duration of a dashboard generation, publish included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		PagesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "pages_rendered_total",
			Help:      "Chart pages written to disk.",
		}),

		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "uploads_total",
			Help:      "Publish attempts by result.",
		}, []string{"result"}),

		PublishedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "bytes_total",
			Help:      "Bytes uploaded to the remote host.",
		}),

		CleanupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "cleanup_deleted_total",
			Help:      "Expired dashboard files removed by cleanup.",
		}),

		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Telegram updates handled, by kind.",
		}, []string{"kind"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by route and status code.",
		}, []string{"route", "code"}),

		CronRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GenerationsTotal,
		m.GenerationDuration,
		m.PagesRendered,
		m.PublishTotal,
		m.PublishedBytes,
		m.CleanupDeleted,
		m.UpdatesTotal,
		m.HTTPRequests,
		m.CronRuns,
	)

	return m
}
