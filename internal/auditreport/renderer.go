package auditreport

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/perfiamatic/audit-flash/internal/narrative"
	"github.com/perfiamatic/audit-flash/web"
)

// PDFClient exposes the subset of the report client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// RenderResult holds both artefacts of a render.
type RenderResult struct {
	HTML   string
	PDF    []byte
	Length int64
}

// Renderer transforms a Document into HTML via html/template and into PDF
// through the conversion service.
type Renderer struct {
	tpl    *template.Template
	client PDFClient
}

// NewRenderer parses the report template. client may be nil when only HTML
// output is needed.
func NewRenderer(client PDFClient) (*Renderer, error) {
	funcMap := template.FuncMap{
		"isH1":   func(b narrative.Block) bool { return b.Kind == narrative.KindHeading1 },
		"isH2":   func(b narrative.Block) bool { return b.Kind == narrative.KindHeading2 },
		"isItem": func(b narrative.Block) bool { return b.Kind == narrative.KindListItem },
	}
	tpl, err := template.New("audit_report.html").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/audit_report.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client}, nil
}

// HTML executes the template only.
func (r *Renderer) HTML(doc Document) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("audit report renderer not initialised")
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render executes the template and converts the HTML to PDF bytes.
func (r *Renderer) Render(ctx context.Context, doc Document) (RenderResult, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return RenderResult{}, err
	}
	if r.client == nil {
		return RenderResult{}, fmt.Errorf("audit report renderer: pdf client required")
	}
	pdf, err := r.client.RenderHTML(ctx, html)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{HTML: html, PDF: pdf, Length: int64(len(pdf))}, nil
}
