package gateway

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// dashboardsPrefix is where the output directory is served.
const dashboardsPrefix = "/dashboards/"

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(instrument(g.metrics))
	}

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler(g.metrics))
	}

	// Webhooks carry their own auth per source.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	// Generated dashboards, read-only, for TV screens on the LAN.
	if *g.config.ServeDashboards && g.appCtx.OutputDir != "" {
		fs := http.StripPrefix(dashboardsPrefix, http.FileServer(http.Dir(g.appCtx.OutputDir)))
		r.Get(dashboardsPrefix+"*", htmlOnly(fs).ServeHTTP)
	}

	// Admin endpoints, not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.audit, g.limiter))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleGetAllModules())
				r.Get("/config", g.handleGetConfig())
				r.Post("/cleanup", g.handleCleanup())
			})
		})
	}

	return r
}

// htmlOnly serves generated pages only: no directory listings and no other
// file that may share the output directory.
func htmlOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/index.html") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
