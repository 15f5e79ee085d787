package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLanding(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/landing.html", TemplateData{
		Title:     "Audit Flash No-Shows",
		CSRFToken: "tok",
		Flash:     &shared.FlashMessage{Kind: "error", Message: "Résultats expirés"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "<title>Audit Flash No-Shows</title>")
	assert.Contains(t, body, "Résultats expirés")
	assert.Contains(t, body, `href="/audit"`)
}

func TestRenderStatusAndRefresh(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.RenderStatus(rr, http.StatusUnprocessableEntity, "pages/audit_error.html", TemplateData{
		Title:          "Erreur",
		RefreshSeconds: 2,
		Data:           map[string]any{"Message": "n8n a répondu avec le statut : 502"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `<meta http-equiv="refresh" content="2">`)
	assert.Contains(t, rr.Body.String(), "n8n a répondu avec le statut : 502")
}

func TestRenderNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/landing.html", TemplateData{}))
}
