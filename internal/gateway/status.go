package gateway

import (
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	Uptime        string          `json:"uptime"`
	StartedAt     time.Time       `json:"started_at"`
	Dashboards    []DashboardFile `json:"dashboards"`
}

// DashboardFile describes one HTML file of the output directory.
type DashboardFile struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	ModTime   time.Time `json:"mod_time"`
	URL       string    `json:"url,omitempty"`
}

// handleStatus reports uptime and the generated files, newest first.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		files, err := g.listDashboards()
		if err != nil {
			g.logger.Warn("listing dashboards failed", "error", err)
		}

		uptime := time.Since(g.startedAt).Truncate(time.Second)
		resp := StatusResponse{
			UptimeSeconds: int64(uptime / time.Second),
			Uptime:        uptime.String(),
			StartedAt:     g.startedAt.UTC(),
			Dashboards:    files,
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (g *Gateway) listDashboards() ([]DashboardFile, error) {
	entries, err := os.ReadDir(g.appCtx.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DashboardFile{}, nil
		}
		return []DashboardFile{}, err
	}

	html := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return !e.IsDir() && strings.HasSuffix(e.Name(), ".html")
	})
	files := make([]DashboardFile, 0, len(html))
	for _, e := range html {
		info, err := e.Info()
		if err != nil {
			continue
		}
		f := DashboardFile{
			Name:      e.Name(),
			Size:      info.Size(),
			SizeHuman: humanize.Bytes(uint64(info.Size())), //nolint:gosec // sizes are non-negative
			ModTime:   info.ModTime().UTC(),
		}
		if *g.config.ServeDashboards {
			f.URL = dashboardsPrefix + e.Name()
		}
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b DashboardFile) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return files, nil
}
