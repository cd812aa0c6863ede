package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/dashbot/internal/report"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// storeContract exercises the Store semantics every backend must honour.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	d1 := day(2025, time.October, 13)
	d2 := day(2025, time.October, 14)

	if err := s.SaveStaff(ctx, d2, []report.StaffRecord{
		{Date: d2, Employee: "Борис", Assigned: 4, Completed: 2, CompletionPct: 50},
		{Date: d2, Employee: "Анна", Assigned: 10, Completed: 8, CompletionPct: 80},
	}); err != nil {
		t.Fatalf("SaveStaff(d2): %v", err)
	}
	if err := s.SaveStaff(ctx, d1, []report.StaffRecord{
		{Date: d1, Employee: "Анна", Assigned: 1, Completed: 1, CompletionPct: 100},
	}); err != nil {
		t.Fatalf("SaveStaff(d1): %v", err)
	}

	// Re-sending d2 replaces its rows.
	if err := s.SaveStaff(ctx, d2, []report.StaffRecord{
		{Date: d2, Employee: "Анна", Assigned: 10, Completed: 10, CompletionPct: 100},
	}); err != nil {
		t.Fatalf("SaveStaff(d2 again): %v", err)
	}

	// Empty records leave the history untouched.
	if err := s.SaveStaff(ctx, d2, nil); err != nil {
		t.Fatalf("SaveStaff(empty): %v", err)
	}

	staff, err := s.Staff(ctx)
	if err != nil {
		t.Fatalf("Staff(): %v", err)
	}
	if len(staff) != 2 {
		t.Fatalf("len(staff) = %d, want 2: %+v", len(staff), staff)
	}
	if !staff[0].Date.Equal(d1) || !staff[1].Date.Equal(d2) {
		t.Errorf("staff not ordered by date: %+v", staff)
	}
	if staff[1].Completed != 10 || staff[1].CompletionPct != 100 {
		t.Errorf("staff[1] = %+v, want replaced record", staff[1])
	}

	for _, m := range []report.MetricsRecord{
		{Date: d2, Missed: 5, TotalOrders: 40, Overdue: 4, OverduePct: 10},
		{Date: d1, Missed: 1},
		{Date: d2, Missed: 6, CallbacksOver5Min: 2, NotCalledBack: 1, TotalOrders: 50, Overdue: 5, OverduePct: 10},
	} {
		if err := s.SaveMetrics(ctx, m); err != nil {
			t.Fatalf("SaveMetrics(%v): %v", m.Date, err)
		}
	}

	metrics, err := s.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics(): %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("len(metrics) = %d, want 2: %+v", len(metrics), metrics)
	}
	if !metrics[0].Date.Equal(d1) {
		t.Errorf("metrics[0].Date = %v, want %v", metrics[0].Date, d1)
	}
	want := report.MetricsRecord{Date: d2, Missed: 6, CallbacksOver5Min: 2, NotCalledBack: 1, TotalOrders: 50, Overdue: 5, OverduePct: 10}
	if metrics[1] != want {
		t.Errorf("metrics[1] = %+v, want %+v", metrics[1], want)
	}
}

func TestInMemoryStore_Contract(t *testing.T) {
	storeContract(t, NewInMemoryStore())
}

func TestCSVStore_Contract(t *testing.T) {
	storeContract(t, NewCSVStoreInDir(t.TempDir()))
}

func TestCSVStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	d := day(2025, time.March, 3)

	first := NewCSVStoreInDir(dir)
	if err := first.SaveMetrics(ctx, report.MetricsRecord{Date: d, Missed: 9}); err != nil {
		t.Fatalf("SaveMetrics: %v", err)
	}

	second := NewCSVStoreInDir(dir)
	metrics, err := second.Metrics(ctx)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if len(metrics) != 1 || metrics[0].Missed != 9 || !metrics[0].Date.Equal(d) {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestCSVStore_ReadsLegacyFiles(t *testing.T) {
	dir := t.TempDir()
	legacy := "\ufeffДата,Сотрудник,Поставлено,Выполнено,% Выполнения\n" +
		"2025-10-13,Анна,10,8,80.0\n" +
		"14.10.2025,Борис,5.0,5.0,100.0\n"
	if err := os.WriteFile(filepath.Join(dir, StaffFile), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	staff, err := NewCSVStoreInDir(dir).Staff(context.Background())
	if err != nil {
		t.Fatalf("Staff: %v", err)
	}
	if len(staff) != 2 {
		t.Fatalf("len(staff) = %d, want 2", len(staff))
	}
	if staff[0].Employee != "Анна" || staff[0].CompletionPct != 80 {
		t.Errorf("staff[0] = %+v", staff[0])
	}
	if !staff[1].Date.Equal(day(2025, time.October, 14)) || staff[1].Assigned != 5 {
		t.Errorf("staff[1] = %+v", staff[1])
	}
}

func TestCSVStore_MissingFilesAreEmpty(t *testing.T) {
	s := NewCSVStoreInDir(filepath.Join(t.TempDir(), "nested"))
	staff, err := s.Staff(context.Background())
	if err != nil || len(staff) != 0 {
		t.Errorf("Staff() = %v, %v; want empty, nil", staff, err)
	}
	metrics, err := s.Metrics(context.Background())
	if err != nil || len(metrics) != 0 {
		t.Errorf("Metrics() = %v, %v; want empty, nil", metrics, err)
	}
}

func TestCSVStore_InvalidRow(t *testing.T) {
	dir := t.TempDir()
	bad := "Дата,Пропущенных,Перезвонов > 5 мин,Не перезвонили/не написали,Просрочено,Всего заказов,% Просрочки\n" +
		"not-a-date,1,2,3,4,5,6\n"
	if err := os.WriteFile(filepath.Join(dir, MetricsFile), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCSVStoreInDir(dir).Metrics(context.Background()); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestStaffOn(t *testing.T) {
	d1 := day(2025, time.January, 1)
	d2 := day(2025, time.January, 2)
	staff := []report.StaffRecord{
		{Date: d1, Employee: "a"},
		{Date: d2, Employee: "b"},
		{Date: d2.Add(15 * time.Hour), Employee: "c"},
	}
	got := StaffOn(staff, d2)
	if len(got) != 2 || got[0].Employee != "b" || got[1].Employee != "c" {
		t.Errorf("StaffOn = %+v", got)
	}
}
