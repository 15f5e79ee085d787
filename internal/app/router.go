package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	audithttp "github.com/perfiamatic/audit-flash/internal/audit/http"
	"github.com/perfiamatic/audit-flash/internal/leads"
	"github.com/perfiamatic/audit-flash/internal/observability"
	"github.com/perfiamatic/audit-flash/internal/relay"
	"github.com/perfiamatic/audit-flash/internal/shared"
	"github.com/perfiamatic/audit-flash/internal/view"
	"github.com/perfiamatic/audit-flash/jobs"
	"github.com/perfiamatic/audit-flash/report"
	"github.com/perfiamatic/audit-flash/web"
)

// relayRateLimit caps direct webhook relays per IP.
const relayRateLimit = 10

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuditHandler   *audithttp.Handler
	RelayHandler   *relay.Handler
	// LeadsHandler is nil when no database is configured.
	LeadsHandler  *leads.Handler
	ReportHandler *report.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	mwCfg := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}
	for _, mw := range BaseStack(mwCfg) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	// The relay answers the browser script directly; it has its own
	// upstream timeout and carries no session.
	if params.RelayHandler != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(httprate.Limit(relayRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.RelayHandler.MountRoutes(r)
		})
	}

	r.Group(func(r chi.Router) {
		for _, mw := range PageStack(mwCfg) {
			r.Use(mw)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		if params.LeadsHandler != nil {
			r.Route("/admin", params.LeadsHandler.MountRoutes)
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One hour in the browser and shared caches.
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
