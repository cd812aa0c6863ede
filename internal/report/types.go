// Package report parses the daily quality-control ("ОКК") text report into
// per-employee task records and call-center metrics.
package report

import "time"

// DateLayout is the date format used in report headers (DD.MM.YYYY).
const DateLayout = "02.01.2006"

// Report is the structured content of one daily report.
type Report struct {
	Date    time.Time
	Staff   []StaffRecord
	Metrics MetricsRecord
}

// StaffRecord holds one employee's task counters for a day.
type StaffRecord struct {
	Date          time.Time
	Employee      string
	Assigned      int
	Completed     int
	CompletionPct float64
}

// MetricsRecord holds the call-center counters for a day.
type MetricsRecord struct {
	Date              time.Time
	Missed            int
	CallbacksOver5Min int
	NotCalledBack     int
	Overdue           int
	TotalOrders       int
	OverduePct        float64
}

// OnTime returns the number of orders processed without delay.
func (m MetricsRecord) OnTime() int {
	return m.TotalOrders - m.Overdue
}

// Percent returns part/whole*100 rounded to two decimals, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

// Day truncates t to midnight UTC so that records compare by calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
