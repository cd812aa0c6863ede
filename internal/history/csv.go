package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/dashbot/internal/report"
)

// Default file names, shared with the history files the bot has always written.
const (
	StaffFile   = "staff_report_history.csv"
	MetricsFile = "metrics_report_history.csv"
)

// Column headers. They stay in Russian so existing history files remain readable.
const (
	colDate          = "Дата"
	colEmployee      = "Сотрудник"
	colAssigned      = "Поставлено"
	colCompleted     = "Выполнено"
	colCompletionPct = "% Выполнения"
	colMissed        = "Пропущенных"
	colCallbacks     = "Перезвонов > 5 мин"
	colNotCalledBack = "Не перезвонили/не написали"
	colOverdue       = "Просрочено"
	colTotalOrders   = "Всего заказов"
	colOverduePct    = "% Просрочки"
)

var (
	staffHeader   = []string{colDate, colEmployee, colAssigned, colCompleted, colCompletionPct}
	metricsHeader = []string{colDate, colMissed, colCallbacks, colNotCalledBack, colOverdue, colTotalOrders, colOverduePct}
)

// dateLayouts are accepted when reading; the first one is used for writing.
var dateLayouts = []string{
	"2006-01-02",
	report.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVStore keeps history in two CSV files inside a directory. Every save
// rewrites the affected file through a temp file and rename.
type CSVStore struct {
	mu          sync.Mutex
	staffPath   string
	metricsPath string
}

// Compile-time interface check.
var _ Store = (*CSVStore)(nil)

// NewCSVStore creates a store for the given file paths. Parent directories
// are created on first write.
func NewCSVStore(staffPath, metricsPath string) *CSVStore {
	return &CSVStore{
		staffPath:   staffPath,
		metricsPath: metricsPath,
	}
}

// NewCSVStoreInDir creates a store using the default file names inside dir.
func NewCSVStoreInDir(dir string) *CSVStore {
	return NewCSVStore(filepath.Join(dir, StaffFile), filepath.Join(dir, MetricsFile))
}

// SaveStaff implements Store.
func (s *CSVStore) SaveStaff(_ context.Context, date time.Time, records []report.StaffRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readStaff()
	if err != nil {
		return err
	}
	return s.writeStaff(replaceStaff(history, date, records))
}

// SaveMetrics implements Store.
func (s *CSVStore) SaveMetrics(_ context.Context, rec report.MetricsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readMetrics()
	if err != nil {
		return err
	}
	return s.writeMetrics(replaceMetrics(history, rec))
}

// Staff implements Store.
func (s *CSVStore) Staff(_ context.Context) ([]report.StaffRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staff, err := s.readStaff()
	if err != nil {
		return nil, err
	}
	sortStaff(staff)
	return staff, nil
}

// Metrics implements Store.
func (s *CSVStore) Metrics(_ context.Context) ([]report.MetricsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics, err := s.readMetrics()
	if err != nil {
		return nil, err
	}
	sortMetrics(metrics)
	return metrics, nil
}

// Close implements Store.
func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) readStaff() ([]report.StaffRecord, error) {
	rows, err := readTable(s.staffPath)
	if err != nil || rows == nil {
		return nil, err
	}

	staff := make([]report.StaffRecord, 0, len(rows))
	for i, row := range rows {
		var (
			rec  report.StaffRecord
			errs []error
		)
		rec.Date, err = parseDate(row[colDate])
		errs = append(errs, err)
		rec.Employee = row[colEmployee]
		rec.Assigned, err = parseInt(row[colAssigned])
		errs = append(errs, err)
		rec.Completed, err = parseInt(row[colCompleted])
		errs = append(errs, err)
		rec.CompletionPct, err = parseFloat(row[colCompletionPct])
		errs = append(errs, err)
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("history: %s row %d: %w", s.staffPath, i+2, err)
		}
		staff = append(staff, rec)
	}
	return staff, nil
}

func (s *CSVStore) readMetrics() ([]report.MetricsRecord, error) {
	rows, err := readTable(s.metricsPath)
	if err != nil || rows == nil {
		return nil, err
	}

	metrics := make([]report.MetricsRecord, 0, len(rows))
	for i, row := range rows {
		var (
			rec  report.MetricsRecord
			errs []error
		)
		rec.Date, err = parseDate(row[colDate])
		errs = append(errs, err)
		rec.Missed, err = parseInt(row[colMissed])
		errs = append(errs, err)
		rec.CallbacksOver5Min, err = parseInt(row[colCallbacks])
		errs = append(errs, err)
		rec.NotCalledBack, err = parseInt(row[colNotCalledBack])
		errs = append(errs, err)
		rec.Overdue, err = parseInt(row[colOverdue])
		errs = append(errs, err)
		rec.TotalOrders, err = parseInt(row[colTotalOrders])
		errs = append(errs, err)
		rec.OverduePct, err = parseFloat(row[colOverduePct])
		errs = append(errs, err)
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("history: %s row %d: %w", s.metricsPath, i+2, err)
		}
		metrics = append(metrics, rec)
	}
	return metrics, nil
}

func (s *CSVStore) writeStaff(staff []report.StaffRecord) error {
	rows := make([][]string, 0, len(staff))
	for _, r := range staff {
		rows = append(rows, []string{
			formatDate(r.Date),
			r.Employee,
			strconv.Itoa(r.Assigned),
			strconv.Itoa(r.Completed),
			formatFloat(r.CompletionPct),
		})
	}
	return writeTable(s.staffPath, staffHeader, rows)
}

func (s *CSVStore) writeMetrics(metrics []report.MetricsRecord) error {
	rows := make([][]string, 0, len(metrics))
	for _, r := range metrics {
		rows = append(rows, []string{
			formatDate(r.Date),
			strconv.Itoa(r.Missed),
			strconv.Itoa(r.CallbacksOver5Min),
			strconv.Itoa(r.NotCalledBack),
			strconv.Itoa(r.Overdue),
			strconv.Itoa(r.TotalOrders),
			formatFloat(r.OverduePct),
		})
	}
	return writeTable(s.metricsPath, metricsHeader, rows)
}

// readTable reads a CSV file into header-keyed rows. A missing file yields
// nil rows and no error.
func readTable(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("history: replace %s: %w", path, err)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return report.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayouts[0])
}

// parseInt accepts "12" as well as "12.0", which float-typed exports write for integer
// columns that once contained a missing value.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
