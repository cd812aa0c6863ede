// Package history stores the dated staff and metrics records extracted from
// daily reports. A report for an already-known date replaces that date's
// records, so re-sending a corrected report is idempotent.
package history

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/flemzord/dashbot/internal/report"
)

// ServiceName is the AppContext service name under which the active store is registered.
const ServiceName = "history.store"

// ErrNoStore is returned when no history module is configured.
var ErrNoStore = errors.New("history: no store configured")

// Store persists staff and metrics history.
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveStaff replaces every staff record of date with records.
	// An empty records slice leaves the stored history untouched.
	SaveStaff(ctx context.Context, date time.Time, records []report.StaffRecord) error

	// SaveMetrics replaces the metrics record for rec.Date.
	SaveMetrics(ctx context.Context, rec report.MetricsRecord) error

	// Staff returns the full staff history ordered by date, then employee.
	Staff(ctx context.Context) ([]report.StaffRecord, error)

	// Metrics returns the full metrics history ordered by date.
	Metrics(ctx context.Context) ([]report.MetricsRecord, error)

	// Close releases underlying resources.
	Close() error
}

// SaveReport writes both parts of a parsed report.
func SaveReport(ctx context.Context, s Store, r *report.Report) error {
	if err := s.SaveStaff(ctx, r.Date, r.Staff); err != nil {
		return err
	}
	return s.SaveMetrics(ctx, r.Metrics)
}

// StaffOn filters staff history down to one calendar day.
func StaffOn(staff []report.StaffRecord, date time.Time) []report.StaffRecord {
	day := report.Day(date)
	var out []report.StaffRecord
	for _, r := range staff {
		if report.Day(r.Date).Equal(day) {
			out = append(out, r)
		}
	}
	return out
}

func sortStaff(staff []report.StaffRecord) {
	slices.SortStableFunc(staff, func(a, b report.StaffRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Employee, b.Employee)
	})
}

func sortMetrics(metrics []report.MetricsRecord) {
	slices.SortStableFunc(metrics, func(a, b report.MetricsRecord) int {
		return a.Date.Compare(b.Date)
	})
}

// replaceStaff drops the rows of date from history and appends records.
func replaceStaff(history []report.StaffRecord, date time.Time, records []report.StaffRecord) []report.StaffRecord {
	day := report.Day(date)
	out := make([]report.StaffRecord, 0, len(history)+len(records))
	for _, r := range history {
		if !report.Day(r.Date).Equal(day) {
			out = append(out, r)
		}
	}
	for _, r := range records {
		r.Date = day
		out = append(out, r)
	}
	sortStaff(out)
	return out
}

// replaceMetrics drops the row of rec.Date from history and appends rec.
func replaceMetrics(history []report.MetricsRecord, rec report.MetricsRecord) []report.MetricsRecord {
	day := report.Day(rec.Date)
	out := make([]report.MetricsRecord, 0, len(history)+1)
	for _, r := range history {
		if !report.Day(r.Date).Equal(day) {
			out = append(out, r)
		}
	}
	rec.Date = day
	out = append(out, rec)
	sortMetrics(out)
	return out
}
