package leads

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/perfiamatic/audit-flash/internal/view"
)

// Lister is the read side used by the admin page.
type Lister interface {
	Latest(ctx context.Context, limit int) ([]Lead, error)
}

// Credentials protect the admin page. PasswordHash is a bcrypt hash.
type Credentials struct {
	User         string
	PasswordHash string
}

// Handler serves the lead register to administrators.
type Handler struct {
	logger    *slog.Logger
	leads     Lister
	templates *view.Engine
	creds     Credentials
}

// NewHandler constructs the admin handler.
func NewHandler(logger *slog.Logger, leads Lister, templates *view.Engine, creds Credentials) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, leads: leads, templates: templates, creds: creds}
}

// MountRoutes registers GET /leads behind basic auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.basicAuth).Get("/leads", h.list)
}

type listPageData struct {
	Leads []Lead
	Limit int
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.leads.Latest(r.Context(), limit)
	if err != nil {
		h.handleServerError(w, "list leads", err)
		return
	}
	data := view.TemplateData{
		Title:       "Leads",
		CurrentPath: r.URL.Path,
		Data:        listPageData{Leads: rows, Limit: limit},
	}
	if err := h.templates.Render(w, "pages/admin_leads.html", data); err != nil {
		h.handleServerError(w, "render leads", err)
	}
}

func (h *Handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !h.authorized(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="audit-flash admin", charset="UTF-8"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authorized(user, pass string) bool {
	if h.creds.User == "" || h.creds.PasswordHash == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(h.creds.User)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.creds.PasswordHash), []byte(pass)) == nil
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
