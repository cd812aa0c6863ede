package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/dashbot/internal/config"
	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/security"
	"gopkg.in/yaml.v3"
)

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleGetAllModules lists all compiled modules.
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the running configuration with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		cfg, ok := core.Service[*config.Config](g.appCtx, config.ServiceName)
		if !ok {
			http.Error(w, "config not available", http.StatusServiceUnavailable)
			return
		}

		// Round-trip through YAML so module nodes become plain maps.
		raw, err := yaml.Marshal(cfg)
		if err != nil {
			http.Error(w, "failed to serialize config", http.StatusInternalServerError)
			return
		}
		var generic map[string]any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			http.Error(w, "failed to parse config", http.StatusInternalServerError)
			return
		}

		g.redactor.RedactMap(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// cleanupResponse is the JSON response for POST /api/cleanup.
type cleanupResponse struct {
	Deleted    int    `json:"deleted"`
	Freed      string `json:"freed"`
	Cutoff     string `json:"cutoff"`
	OutputDir  string `json:"output_dir"`
	RetainDays int    `json:"retention_days"`
}

// handleCleanup runs the dashboard retention cleanup on demand.
func (g *Gateway) handleCleanup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.pipeline == nil {
			http.Error(w, "dashboard pipeline not available", http.StatusServiceUnavailable)
			return
		}

		res, err := g.pipeline.Cleanup(r.Context())
		if err != nil {
			g.logger.Error("cleanup via api failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		g.audit.Log(security.AuditEvent{
			Type:     security.EventCleanup,
			Detail:   "api",
			Metadata: map[string]string{"remote_addr": r.RemoteAddr},
		})

		writeJSON(w, http.StatusOK, cleanupResponse{
			Deleted:    res.Deleted,
			Freed:      humanize.Bytes(res.Bytes),
			Cutoff:     res.Cutoff.Format("2006-01-02"),
			OutputDir:  g.pipeline.OutputDir(),
			RetainDays: g.pipeline.RetentionDays(),
		})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
