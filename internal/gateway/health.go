package gateway

import (
	"encoding/json"
	"net/http"
	"os"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Pipeline bool   `json:"pipeline"`
	Output   bool   `json:"output_dir"`
}

// handleHealth returns 200 when the dashboard pipeline is wired and the
// output directory exists, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Pipeline: g.pipeline != nil,
		}
		if info, err := os.Stat(g.appCtx.OutputDir); err == nil && info.IsDir() {
			resp.Output = true
		}
		if !resp.Pipeline || !resp.Output {
			resp.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
