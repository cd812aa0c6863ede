package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_CollectorsRegistered(t *testing.T) {
	m := New()

	m.GenerationsTotal.WithLabelValues(ResultOK).Inc()
	m.GenerationsTotal.WithLabelValues(ResultOK).Inc()
	m.GenerationsTotal.WithLabelValues(ResultNoData).Inc()

	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok generations = %v, want 2", got)
	}

	expected := `
# HELP dashbot_dashboard_generations_total Dashboard generations by result.
# TYPE dashbot_dashboard_generations_total counter
dashbot_dashboard_generations_total{result="no_data"} 1
dashbot_dashboard_generations_total{result="ok"} 2
`
	if err := testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "dashbot_dashboard_generations_total"); err != nil {
		t.Error(err)
	}
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.CleanupDeleted.Add(3)

	if got := testutil.ToFloat64(b.CleanupDeleted); got != 0 {
		t.Errorf("registries should be independent, got %v", got)
	}
}
