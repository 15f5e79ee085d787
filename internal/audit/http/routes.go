package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const (
	submitLimit   = 5
	downloadLimit = 10
)

// MountRoutes registers the visitor pages. Session and CSRF middleware are
// expected upstream.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.landing)
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.show)
		r.With(limitByIP(submitLimit)).Post("/", h.submit)
		r.Post("/retry", h.retry)
		r.Post("/reset", h.reset)
		r.With(limitByIP(downloadLimit)).Get("/{id}/report.pdf", h.downloadPDF)
		r.Get("/{id}/result.json", h.result)
	})
}

func limitByIP(requests int) func(http.Handler) http.Handler {
	return httprate.Limit(requests, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
}
