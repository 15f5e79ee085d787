package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/perfiamatic/audit-flash/internal/auditreport"
	"github.com/perfiamatic/audit-flash/internal/narrative"
	"github.com/perfiamatic/audit-flash/internal/shared"
	"github.com/perfiamatic/audit-flash/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	// RefreshSeconds adds a meta refresh when positive.
	RefreshSeconds int
	Data           any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"isoDate":  auditreport.Date,
		"currency": auditreport.Currency,
		"number":   auditreport.Number,
		"rate":     auditreport.Rate,
		"points":   auditreport.SignedPoints,
		"isH1":     func(b narrative.Block) bool { return b.Kind == narrative.KindHeading1 },
		"isH2":     func(b narrative.Block) bool { return b.Kind == narrative.KindHeading2 },
		"isItem":   func(b narrative.Block) bool { return b.Kind == narrative.KindListItem },
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	return e.templates.ExecuteTemplate(w, name, data)
}
