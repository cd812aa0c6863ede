package dashboard

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/flemzord/dashbot/internal/report"
	"github.com/samber/lo"
)

// axisDateLayout formats x-axis dates on the history charts.
const axisDateLayout = "2006-01-02"

// Figure is the JSON shape consumed by Plotly.newPlot.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is a single plotly trace. Only the attributes used by the charts
// are modelled.
type Trace struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	X            []string `json:"x"`
	Y            []int    `json:"y"`
	Mode         string   `json:"mode,omitempty"`
	Text         []string `json:"text,omitempty"`
	TextPosition string   `json:"textposition,omitempty"`
	Marker       *Marker  `json:"marker,omitempty"`
}

// Marker sets a trace color.
type Marker struct {
	Color string `json:"color"`
}

// Layout is the plotly figure layout.
type Layout struct {
	Title       Text         `json:"title"`
	Height      int          `json:"height"`
	BarMode     string       `json:"barmode,omitempty"`
	XAxis       Axis         `json:"xaxis"`
	YAxis       Axis         `json:"yaxis"`
	Legend      *Legend      `json:"legend,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Text is a plotly title object.
type Text struct {
	Text string `json:"text"`
}

// Axis configures one axis.
type Axis struct {
	Title Text   `json:"title"`
	Type  string `json:"type,omitempty"`
}

// Legend configures the legend box.
type Legend struct {
	Title Text `json:"title"`
}

// Annotation is a free text label anchored on data coordinates.
type Annotation struct {
	X         string `json:"x"`
	Y         int    `json:"y"`
	Text      string `json:"text"`
	ShowArrow bool   `json:"showarrow"`
	YShift    int    `json:"yshift"`
	Font      Font   `json:"font"`
}

// Font is an annotation font.
type Font struct {
	Size  int    `json:"size"`
	Color string `json:"color"`
}

func labels(values []int) []string {
	return lo.Map(values, func(v int, _ int) string { return strconv.Itoa(v) })
}

// staffFigure charts assigned vs completed tasks per employee for one day,
// best completion rate first.
func (r *Renderer) staffFigure(today []report.StaffRecord, date string) Figure {
	rows := slices.Clone(today)
	slices.SortStableFunc(rows, func(a, b report.StaffRecord) int {
		return cmp.Compare(b.CompletionPct, a.CompletionPct)
	})

	names := lo.Map(rows, func(s report.StaffRecord, _ int) string { return s.Employee })
	assigned := lo.Map(rows, func(s report.StaffRecord, _ int) int { return s.Assigned })
	completed := lo.Map(rows, func(s report.StaffRecord, _ int) int { return s.Completed })

	return Figure{
		Data: []Trace{
			{
				Type: "bar", Name: "Поставлено", X: names, Y: assigned,
				Text: labels(assigned), TextPosition: "auto",
				Marker: &Marker{Color: r.cfg.MissedColor},
			},
			{
				Type: "bar", Name: "Выполнено", X: names, Y: completed,
				Text: labels(completed), TextPosition: "auto",
				Marker: &Marker{Color: r.cfg.CompletedColor},
			},
		},
		Layout: Layout{
			Title:   Text{Text: fmt.Sprintf("1. Выполнение задач по сотрудникам (%s)", date)},
			Height:  r.cfg.ChartHeight,
			BarMode: "group",
			XAxis:   Axis{Title: Text{Text: "Сотрудник"}},
			YAxis:   Axis{Title: Text{Text: "Количество"}},
		},
	}
}

// missedFigure charts missed calls and callback delays over the full history.
func (r *Renderer) missedFigure(metrics []report.MetricsRecord) Figure {
	dates := axisDates(metrics)
	line := func(name string, pick func(report.MetricsRecord) int) Trace {
		return Trace{
			Type: "scatter",
			Name: name,
			Mode: "lines+markers",
			X:    dates,
			Y:    lo.Map(metrics, func(m report.MetricsRecord, _ int) int { return pick(m) }),
		}
	}

	return Figure{
		Data: []Trace{
			line("Пропущенных", func(m report.MetricsRecord) int { return m.Missed }),
			line("Перезвонов > 5 мин", func(m report.MetricsRecord) int { return m.CallbacksOver5Min }),
			line("Не перезвонили/не написали", func(m report.MetricsRecord) int { return m.NotCalledBack }),
		},
		Layout: Layout{
			Title:  Text{Text: "2. Динамика пропущенных звонков и задержек"},
			Height: r.cfg.ChartHeight,
			XAxis:  Axis{Title: Text{Text: "Дата"}, Type: "category"},
			YAxis:  Axis{Title: Text{Text: "Количество"}},
		},
	}
}

// overdueFigure stacks on-time and overdue orders per day. Days without
// orders are left out; ok is false when nothing remains.
func (r *Renderer) overdueFigure(metrics []report.MetricsRecord) (fig Figure, ok bool) {
	rows := lo.Filter(metrics, func(m report.MetricsRecord, _ int) bool { return m.TotalOrders > 0 })
	if len(rows) == 0 {
		return Figure{}, false
	}

	dates := axisDates(rows)
	annotations := lo.Map(rows, func(m report.MetricsRecord, i int) Annotation {
		return Annotation{
			X:      dates[i],
			Y:      m.TotalOrders,
			Text:   fmt.Sprintf("Всего: %d", m.TotalOrders),
			YShift: 10,
			Font:   Font{Size: 10, Color: "gray"},
		}
	})

	return Figure{
		Data: []Trace{
			{
				Type: "bar", Name: "Вовремя", X: dates,
				Y:      lo.Map(rows, func(m report.MetricsRecord, _ int) int { return m.OnTime() }),
				Marker: &Marker{Color: r.cfg.CompletedColor},
			},
			{
				Type: "bar", Name: "Просрочено", X: dates,
				Y:      lo.Map(rows, func(m report.MetricsRecord, _ int) int { return m.Overdue }),
				Marker: &Marker{Color: r.cfg.MissedColor},
			},
		},
		Layout: Layout{
			Title:       Text{Text: "3. Контроль просрочки заказов (в штуках)"},
			Height:      r.cfg.ChartHeight,
			BarMode:     "stack",
			XAxis:       Axis{Title: Text{Text: "Дата"}, Type: "category"},
			YAxis:       Axis{Title: Text{Text: "Количество заказов"}},
			Legend:      &Legend{Title: Text{Text: "Статус"}},
			Annotations: annotations,
		},
	}, true
}

func axisDates(metrics []report.MetricsRecord) []string {
	return lo.Map(metrics, func(m report.MetricsRecord, _ int) string { return m.Date.Format(axisDateLayout) })
}
