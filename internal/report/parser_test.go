package report

import (
	"errors"
	"testing"
	"time"
)

const sampleReport = `Отчет ОКК 14.10.2025

1. Задачи:
Анна - поставлено 10/выполнено 8
Борис - поставлено 5/выполнено 5
Анна - поставлено 2/выполнено 1
Ольга_М - поставлено 0/выполнено 0

2. Пропущенных - 7
Количество перезвонов более 5 минут - 3
Не перезвонили/не написали - 1

3. Количество заказов, просроченных обработку - 4 / 50
`

func TestParse_Date(t *testing.T) {
	r, err := Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := time.Date(2025, time.October, 14, 0, 0, 0, 0, time.UTC)
	if !r.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", r.Date, want)
	}
	if !r.Metrics.Date.Equal(want) {
		t.Errorf("Metrics.Date = %v, want %v", r.Metrics.Date, want)
	}
}

func TestParse_StaffGroupedAndSorted(t *testing.T) {
	r, err := Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []StaffRecord{
		{Employee: "Анна", Assigned: 12, Completed: 9, CompletionPct: 75},
		{Employee: "Борис", Assigned: 5, Completed: 5, CompletionPct: 100},
		{Employee: "Ольга_М", Assigned: 0, Completed: 0, CompletionPct: 0},
	}
	if len(r.Staff) != len(want) {
		t.Fatalf("len(Staff) = %d, want %d: %+v", len(r.Staff), len(want), r.Staff)
	}
	for i, w := range want {
		got := r.Staff[i]
		if got.Employee != w.Employee || got.Assigned != w.Assigned ||
			got.Completed != w.Completed || got.CompletionPct != w.CompletionPct {
			t.Errorf("Staff[%d] = %+v, want %+v", i, got, w)
		}
		if !got.Date.Equal(r.Date) {
			t.Errorf("Staff[%d].Date = %v, want report date", i, got.Date)
		}
	}
}

func TestParse_Metrics(t *testing.T) {
	r, err := Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	m := r.Metrics
	if m.Missed != 7 {
		t.Errorf("Missed = %d, want 7", m.Missed)
	}
	if m.CallbacksOver5Min != 3 {
		t.Errorf("CallbacksOver5Min = %d, want 3", m.CallbacksOver5Min)
	}
	if m.NotCalledBack != 1 {
		t.Errorf("NotCalledBack = %d, want 1", m.NotCalledBack)
	}
	if m.Overdue != 4 || m.TotalOrders != 50 {
		t.Errorf("Overdue/Total = %d/%d, want 4/50", m.Overdue, m.TotalOrders)
	}
	if m.OverduePct != 8 {
		t.Errorf("OverduePct = %v, want 8", m.OverduePct)
	}
	if m.OnTime() != 46 {
		t.Errorf("OnTime() = %d, want 46", m.OnTime())
	}
}

func TestParse_MissingMetricsDefaultToZero(t *testing.T) {
	r, err := Parse("Отчет ОКК 01.02.2025\nничего больше")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(r.Staff) != 0 {
		t.Errorf("Staff = %+v, want empty", r.Staff)
	}
	m := r.Metrics
	if m.Missed != 0 || m.CallbacksOver5Min != 0 || m.NotCalledBack != 0 ||
		m.Overdue != 0 || m.TotalOrders != 0 || m.OverduePct != 0 {
		t.Errorf("Metrics = %+v, want all zero", m)
	}
}

func TestParse_NoDate(t *testing.T) {
	_, err := Parse("Анна - поставлено 1/выполнено 1")
	if err == nil {
		t.Fatal("expected error for report without date")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if !errors.Is(err, ErrNoDate) {
		t.Errorf("error = %v, want ErrNoDate", err)
	}
}

func TestParse_InvalidDate(t *testing.T) {
	_, err := Parse("Отчет ОКК 31.02.2025")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole int
		want        float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{5, 0, 0},
		{0, 10, 0},
		{10, 10, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.whole); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.part, tt.whole, got, tt.want)
		}
	}
}
