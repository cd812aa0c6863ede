package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/dashbot/internal/history"
	"github.com/flemzord/dashbot/internal/report"
)

const dateLayout = "2006-01-02"

var _ history.Store = (*Store)(nil)

// Store implements history.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// SaveStaff implements history.Store.
func (s *Store) SaveStaff(ctx context.Context, date time.Time, records []report.StaffRecord) error {
	if len(records) == 0 {
		return nil
	}
	day := report.Day(date).Format(dateLayout)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM staff WHERE date = ?", day); err != nil {
			return fmt.Errorf("sqlite: clear staff %s: %w", day, err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO staff (date, employee, assigned, completed, completion_pct)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(date, employee) DO UPDATE SET
				assigned = excluded.assigned,
				completed = excluded.completed,
				completion_pct = excluded.completion_pct`)
		if err != nil {
			return fmt.Errorf("sqlite: prepare staff insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, day, r.Employee, r.Assigned, r.Completed, r.CompletionPct); err != nil {
				return fmt.Errorf("sqlite: insert staff %s/%s: %w", day, r.Employee, err)
			}
		}
		return nil
	})
}

// SaveMetrics implements history.Store.
func (s *Store) SaveMetrics(ctx context.Context, rec report.MetricsRecord) error {
	day := report.Day(rec.Date).Format(dateLayout)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO metrics (date, missed, callbacks_over_5min, not_called_back, overdue, total_orders, overdue_pct)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				missed = excluded.missed,
				callbacks_over_5min = excluded.callbacks_over_5min,
				not_called_back = excluded.not_called_back,
				overdue = excluded.overdue,
				total_orders = excluded.total_orders,
				overdue_pct = excluded.overdue_pct,
				updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
			day, rec.Missed, rec.CallbacksOver5Min, rec.NotCalledBack, rec.Overdue, rec.TotalOrders, rec.OverduePct,
		)
		if err != nil {
			return fmt.Errorf("sqlite: upsert metrics %s: %w", day, err)
		}
		return nil
	})
}

// Staff implements history.Store.
func (s *Store) Staff(ctx context.Context) ([]report.StaffRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, employee, assigned, completed, completion_pct
		FROM staff
		ORDER BY date, employee`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query staff: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []report.StaffRecord
	for rows.Next() {
		var (
			r    report.StaffRecord
			date string
		)
		if err := rows.Scan(&date, &r.Employee, &r.Assigned, &r.Completed, &r.CompletionPct); err != nil {
			return nil, fmt.Errorf("sqlite: scan staff: %w", err)
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("sqlite: staff date %q: %w", date, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: staff rows: %w", err)
	}
	return out, nil
}

// Metrics implements history.Store.
func (s *Store) Metrics(ctx context.Context) ([]report.MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, missed, callbacks_over_5min, not_called_back, overdue, total_orders, overdue_pct
		FROM metrics
		ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []report.MetricsRecord
	for rows.Next() {
		var (
			r    report.MetricsRecord
			date string
		)
		if err := rows.Scan(&date, &r.Missed, &r.CallbacksOver5Min, &r.NotCalledBack, &r.Overdue, &r.TotalOrders, &r.OverduePct); err != nil {
			return nil, fmt.Errorf("sqlite: scan metrics: %w", err)
		}
		if r.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("sqlite: metrics date %q: %w", date, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: metrics rows: %w", err)
	}
	return out, nil
}

// Close implements history.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
