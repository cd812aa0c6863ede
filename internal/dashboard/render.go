package dashboard

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/flemzord/dashbot/internal/history"
	"github.com/flemzord/dashbot/internal/report"
	"github.com/samber/lo"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// fileDateLayout is the date suffix of dated page names.
const fileDateLayout = "2006-01-02"

// Page kinds, in slideshow order. The number and slug form the file name.
var (
	pageStaff   = pageKind{num: 1, slug: "staff", title: "Задачи", heading: "1. Эффективность выполнения задач"}
	pageMissed  = pageKind{num: 2, slug: "missed", title: "Звонки", heading: "2. Контроль пропущенных звонков"}
	pageOverdue = pageKind{num: 3, slug: "overdue", title: "Просрочка", heading: "3. Контроль просрочки заказов"}
)

type pageKind struct {
	num     int
	slug    string
	title   string
	heading string
}

type pageData struct {
	Kind          string
	Heading       string
	Date          time.Time
	BackgroundURL string
	Height        int
	Figure        Figure
}

type hostData struct {
	Date           time.Time
	BackgroundURL  string
	IntervalMillis int64
	Files          []string
}

// Renderer writes chart pages and the slideshow host page.
type Renderer struct {
	cfg  Config
	page *template.Template
	host *template.Template
}

// NewRenderer parses the embedded templates. cfg is defaulted in place.
func NewRenderer(cfg Config) (*Renderer, error) {
	cfg.Defaults()

	parse := func(name string) (*template.Template, error) {
		t, err := template.New(name).Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("dashboard: parse %s: %w", name, err)
		}
		return t, nil
	}

	page, err := parse("page.html.tmpl")
	if err != nil {
		return nil, err
	}
	host, err := parse("host.html.tmpl")
	if err != nil {
		return nil, err
	}

	return &Renderer{cfg: cfg, page: page, host: host}, nil
}

// Config returns the defaulted configuration in use.
func (r *Renderer) Config() Config {
	return r.cfg
}

// PageName returns the file name of a dated chart page.
func (r *Renderer) PageName(num int, slug string, date time.Time) string {
	return fmt.Sprintf("%s_%d_%s_%s.html", r.cfg.Prefix, num, slug, date.Format(fileDateLayout))
}

// Render writes every chart page the history allows for date into outDir,
// then the slideshow host page listing them. It returns the page paths in
// slideshow order and the host path.
func (r *Renderer) Render(ctx context.Context, staff []report.StaffRecord, metrics []report.MetricsRecord, date time.Time, outDir string) (pages []string, host string, err error) {
	date = report.Day(date)
	dateLabel := date.Format(report.DateLayout)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("dashboard: create output dir: %w", err)
	}

	write := func(kind pageKind, fig Figure) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(outDir, r.PageName(kind.num, kind.slug, date))
		data := pageData{
			Kind:          kind.title,
			Heading:       kind.heading,
			Date:          date,
			BackgroundURL: r.cfg.BackgroundURL,
			Height:        r.cfg.ChartHeight,
			Figure:        fig,
		}
		if err := r.execute(r.page, path, data); err != nil {
			return err
		}
		pages = append(pages, path)
		return nil
	}

	if today := history.StaffOn(staff, date); len(today) > 0 {
		if err := write(pageStaff, r.staffFigure(today, dateLabel)); err != nil {
			return nil, "", err
		}
	}

	if len(metrics) > 0 {
		if err := write(pageMissed, r.missedFigure(metrics)); err != nil {
			return nil, "", err
		}
		if fig, ok := r.overdueFigure(metrics); ok {
			if err := write(pageOverdue, fig); err != nil {
				return nil, "", err
			}
		}
	}

	host = filepath.Join(outDir, r.cfg.HostFile)
	data := hostData{
		Date:           date,
		BackgroundURL:  r.cfg.BackgroundURL,
		IntervalMillis: r.cfg.Interval.Milliseconds(),
		Files:          lo.Map(pages, func(p string, _ int) string { return filepath.Base(p) }),
	}
	if err := r.execute(r.host, host, data); err != nil {
		return nil, "", err
	}

	return pages, host, nil
}

func (r *Renderer) execute(t *template.Template, path string, data any) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("dashboard: write %s: %w", path, err)
	}
	return nil
}
