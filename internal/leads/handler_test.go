package leads

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/view"
)

type stubLister struct {
	leads []Lead
	err   error
	limit int
}

func (s *stubLister) Latest(_ context.Context, limit int) ([]Lead, error) {
	s.limit = limit
	return s.leads, s.err
}

func newAdminRouter(t *testing.T, lister Lister) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	h := NewHandler(nil, lister, engine, Credentials{User: "admin", PasswordHash: string(hash)})
	r := chi.NewRouter()
	r.Route("/admin", h.MountRoutes)
	return r
}

func TestAdminLeadsRequiresCredentials(t *testing.T) {
	router := newAdminRouter(t, &stubLister{})

	for name, setAuth := range map[string]func(*http.Request){
		"none":           func(*http.Request) {},
		"wrong password": func(r *http.Request) { r.SetBasicAuth("admin", "nope") },
		"wrong user":     func(r *http.Request) { r.SetBasicAuth("root", "s3cret") },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
			setAuth(req)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
		})
	}
}

func TestAdminLeadsListsRows(t *testing.T) {
	rate := 8.0
	lister := &stubLister{leads: []Lead{{
		ID:             uuid.New(),
		ClinicName:     "Cabinet Dr. Martin",
		Email:          "contact@cabinet.fr",
		AverageRevenue: 150,
		Status:         audit.StatusSucceeded,
		NoShowRate:     &rate,
		ReportPath:     "/var/reports/x.pdf",
		CreatedAt:      time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC),
	}}}
	router := newAdminRouter(t, lister)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?limit=20", nil)
	req.SetBasicAuth("admin", "s3cret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Cabinet Dr. Martin")
	assert.Contains(t, body, "mailto:contact@cabinet.fr")
	assert.Contains(t, body, "14/07/2025 09:00")
	assert.Contains(t, body, "report.pdf")
	assert.Equal(t, 20, lister.limit)
}

func TestAdminLeadsStoreFailure(t *testing.T) {
	router := newAdminRouter(t, &stubLister{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	req.SetBasicAuth("admin", "s3cret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdminLeadsDisabledWithoutHash(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, &stubLister{}, engine, Credentials{User: "admin"})
	assert.False(t, h.authorized("admin", ""))
}
