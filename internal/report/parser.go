package report

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

var (
	datePattern = regexp.MustCompile(`Отчет ОКК (\d{2}\.\d{2}\.\d{4})`)

	// Employee names are matched as Unicode word characters: Go's \w is ASCII only.
	taskPattern = regexp.MustCompile(`([\p{L}\p{N}_]+) - поставлено (\d+)/выполнено (\d+)`)

	missedPattern        = regexp.MustCompile(`2\. Пропущенных - (\d+)`)
	callbacksPattern     = regexp.MustCompile(`Количество перезвонов более 5 минут - (\d+)`)
	notCalledBackPattern = regexp.MustCompile(`Не перезвонили/не написали - (\d+)`)
	ordersPattern        = regexp.MustCompile(`Количество заказов, просроченных обработку - (\d+) / (\d+)`)
)

// Parse extracts the report date, per-employee task counters and metrics
// from the raw report text. Metrics that are absent default to zero; a
// missing or invalid date is a *ParseError.
func Parse(text string) (*Report, error) {
	date, err := parseDate(text)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	staff, err := parseStaff(text, date)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	metrics := MetricsRecord{
		Date:              date,
		Missed:            firstInt(missedPattern, text, 1),
		CallbacksOver5Min: firstInt(callbacksPattern, text, 1),
		NotCalledBack:     firstInt(notCalledBackPattern, text, 1),
		Overdue:           firstInt(ordersPattern, text, 1),
		TotalOrders:       firstInt(ordersPattern, text, 2),
	}
	metrics.OverduePct = Percent(metrics.Overdue, metrics.TotalOrders)

	return &Report{
		Date:    date,
		Staff:   staff,
		Metrics: metrics,
	}, nil
}

func parseDate(text string) (time.Time, error) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, ErrNoDate
	}
	date, err := time.Parse(DateLayout, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная дата %q: %w", m[1], err)
	}
	return date, nil
}

// parseStaff collects every task line and sums duplicates per employee.
// The result is sorted by employee name.
func parseStaff(text string, date time.Time) ([]StaffRecord, error) {
	type taskLine struct {
		name      string
		assigned  int
		completed int
	}

	var lines []taskLine
	for _, m := range taskPattern.FindAllStringSubmatch(text, -1) {
		assigned, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("сотрудник %s: %w", m[1], err)
		}
		completed, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("сотрудник %s: %w", m[1], err)
		}
		lines = append(lines, taskLine{
			name:      strings.TrimSpace(m[1]),
			assigned:  assigned,
			completed: completed,
		})
	}
	if len(lines) == 0 {
		return nil, nil
	}

	grouped := lo.GroupBy(lines, func(l taskLine) string { return l.name })

	staff := make([]StaffRecord, 0, len(grouped))
	for name, group := range grouped {
		assigned := lo.SumBy(group, func(l taskLine) int { return l.assigned })
		completed := lo.SumBy(group, func(l taskLine) int { return l.completed })
		staff = append(staff, StaffRecord{
			Date:          date,
			Employee:      name,
			Assigned:      assigned,
			Completed:     completed,
			CompletionPct: Percent(completed, assigned),
		})
	}
	slices.SortFunc(staff, func(a, b StaffRecord) int {
		return cmp.Compare(a.Employee, b.Employee)
	})
	return staff, nil
}

// firstInt returns the integer in capture group idx of the first match, or 0.
func firstInt(re *regexp.Regexp, text string, idx int) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[idx])
	if err != nil {
		return 0
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
