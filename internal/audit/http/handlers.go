package audithttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/auditreport"
	"github.com/perfiamatic/audit-flash/internal/flow"
	"github.com/perfiamatic/audit-flash/internal/platform/httpx"
	"github.com/perfiamatic/audit-flash/internal/shared"
	"github.com/perfiamatic/audit-flash/internal/view"
)

const (
	// MaxFileBytes is the largest CSV accepted by the upload form.
	MaxFileBytes = 10 << 20
	// MaxRequestBytes bounds the whole multipart body.
	MaxRequestBytes = MaxFileBytes + 64<<10

	flowSessionKey  = "audit_flow"
	refreshSeconds  = 2
	pdfRenderBudget = 45 * time.Second
	defaultMaxWait  = 2 * time.Minute
)

// Visitor-facing messages specific to the upload form and downloads.
const (
	msgNotCSV      = "Seuls les fichiers CSV sont acceptés"
	msgTooLarge    = "Le fichier ne doit pas dépasser 10 Mo"
	msgBadEmail    = "Adresse email invalide"
	msgClinicLong  = "Le nom du cabinet ne doit pas dépasser 200 caractères"
	msgPDFFailed   = "Erreur lors de la génération du PDF"
	msgExpired     = "Les résultats de cet audit ont expiré, veuillez relancer une analyse"
	msgStalled     = "L'analyse a dépassé le délai autorisé, veuillez réessayer"
	msgUploadError = "Erreur lors de l'upload du fichier"
)

// AnalysisService starts analyses and reads their outcome.
type AnalysisService interface {
	Submit(ctx context.Context, sub audit.Submission) (string, error)
	Outcome(ctx context.Context, id string) (audit.Outcome, error)
}

// ReportRenderer turns a report document into a PDF.
type ReportRenderer interface {
	Render(ctx context.Context, doc auditreport.Document) (auditreport.RenderResult, error)
}

// Config wires the handler dependencies.
type Config struct {
	Logger    *slog.Logger
	Service   AnalysisService
	Builder   *auditreport.Builder
	Renderer  ReportRenderer
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Schedule  flow.Schedule
	// MaxWait fails a loading flow whose outcome never completes, e.g.
	// after a restart.
	MaxWait time.Duration
}

// Handler serves the upload form, the loading, results and error screens
// and the report downloads.
type Handler struct {
	logger    *slog.Logger
	service   AnalysisService
	builder   *auditreport.Builder
	renderer  ReportRenderer
	templates *view.Engine
	csrf      *shared.CSRFManager
	schedule  flow.Schedule
	maxWait   time.Duration
	validate  *validator.Validate
	pdfs      singleflight.Group
	now       func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	schedule := cfg.Schedule
	if len(schedule) == 0 {
		schedule = flow.DefaultSchedule
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	builder := cfg.Builder
	if builder == nil {
		builder = auditreport.NewBuilder()
	}
	return &Handler{
		logger:    logger,
		service:   cfg.Service,
		builder:   builder,
		renderer:  cfg.Renderer,
		templates: cfg.Templates,
		csrf:      cfg.CSRF,
		schedule:  schedule,
		maxWait:   maxWait,
		validate:  validator.New(),
		now:       time.Now,
	}
}

type submissionForm struct {
	ClinicName string `validate:"max=200"`
	Email      string `validate:"omitempty,email,max=254"`
}

func (h *Handler) landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/landing.html", view.TemplateData{Title: "Audit Flash No-Shows - PerfIAmatic"})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	f := h.loadFlow(sess)
	if f.State == flow.StateLoading {
		f = h.poll(r.Context(), f)
		h.saveFlow(sess, f)
	}

	switch f.State {
	case flow.StateLoading:
		h.render(w, r, http.StatusOK, "pages/audit_loading.html", view.TemplateData{
			Title:          "Analyse en cours...",
			RefreshSeconds: refreshSeconds,
			Data:           newLoadingView(f, h.schedule, h.now()),
		})
	case flow.StateResults:
		h.showResults(w, r, sess, f)
	case flow.StateError:
		h.render(w, r, http.StatusOK, "pages/audit_error.html", view.TemplateData{
			Title: "Une erreur est survenue",
			Data:  errorView{Message: f.Error},
		})
	default:
		h.renderForm(w, r, http.StatusOK, f, "")
	}
}

func (h *Handler) showResults(w http.ResponseWriter, r *http.Request, sess *shared.Session, f flow.Flow) {
	outcome, err := h.service.Outcome(r.Context(), f.AuditID)
	if errors.Is(err, audit.ErrOutcomeNotFound) || (err == nil && outcome.Response == nil) {
		h.saveFlow(sess, flow.New())
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "info", Message: msgExpired})
		}
		http.Redirect(w, r, "/audit", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.handleServerError(w, "load outcome", err)
		return
	}
	vm, err := newResultsView(outcome.ID, *outcome.Response)
	if err != nil {
		h.handleServerError(w, "build results view", err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/audit_results.html", view.TemplateData{
		Title: "Résultats de l'audit - " + vm.ClinicName,
		Data:  vm,
	})
}

// poll checks the stored outcome of a loading flow and applies the
// completing event when there is one.
func (h *Handler) poll(ctx context.Context, f flow.Flow) flow.Flow {
	var ev flow.Event
	outcome, err := h.service.Outcome(ctx, f.AuditID)
	switch {
	case errors.Is(err, audit.ErrOutcomeNotFound):
		ev = flow.Failed(flow.MsgServerError)
	case err != nil:
		h.logger.Warn("poll outcome", slog.String("audit_id", f.AuditID), slog.Any("error", err))
		return f
	default:
		var done bool
		ev, done = flow.FromOutcome(outcome)
		if !done {
			if h.now().Sub(f.SubmittedAt) <= h.maxWait {
				return f
			}
			ev = flow.Failed(msgStalled)
		}
	}
	next, effects, err := flow.Transition(f, ev)
	if err != nil {
		h.logger.Warn("complete flow", slog.String("audit_id", f.AuditID), slog.Any("error", err))
		return f
	}
	if flow.Has(effects, flow.EffectNotify) {
		h.logger.Info("analysis failed", slog.String("audit_id", f.AuditID), slog.String("message", next.Error))
	}
	return next
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	f := h.loadFlow(sess)
	if f.State != flow.StateForm {
		f = flow.New()
	}

	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.renderForm(w, r, http.StatusRequestEntityTooLarge, f, msgTooLarge)
				return
			}
			h.renderForm(w, r, http.StatusBadRequest, f, msgUploadError)
			return
		}
	}

	form := submissionForm{
		ClinicName: strings.TrimSpace(r.FormValue("nom_cabinet")),
		Email:      strings.TrimSpace(r.FormValue("email")),
	}
	averageRevenue := parseAverageRevenue(r.FormValue("ca_moyen"))
	// Keep what the visitor typed when the form is shown again.
	f.ClinicName, f.Email, f.AverageRevenue = form.ClinicName, form.Email, audit.NormaliseAverageRevenue(averageRevenue)

	var (
		fileName string
		fileSize int64
		csv      string
	)
	file, header, err := r.FormFile("csv")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		h.renderForm(w, r, http.StatusBadRequest, f, msgUploadError)
		return
	default:
		defer func() { _ = file.Close() }()
		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			h.renderForm(w, r, http.StatusUnprocessableEntity, f, msgNotCSV)
			return
		}
		if header.Size > MaxFileBytes {
			h.renderForm(w, r, http.StatusRequestEntityTooLarge, f, msgTooLarge)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, MaxFileBytes+1))
		if err != nil {
			h.renderForm(w, r, http.StatusBadRequest, f, msgUploadError)
			return
		}
		fileName, fileSize, csv = filepath.Base(header.Filename), int64(len(data)), string(data)
	}

	if err := h.validate.Struct(form); err != nil {
		h.renderForm(w, r, http.StatusUnprocessableEntity, f, validationMessage(err))
		return
	}

	next, effects, err := flow.Transition(f, flow.Submit(fileName, fileSize, form.ClinicName, averageRevenue, form.Email, h.now()))
	if err != nil {
		h.handleServerError(w, "submit transition", err)
		return
	}
	if next.State != flow.StateLoading {
		msg := flow.MsgValidation
		for _, e := range effects {
			if e.Kind == flow.EffectNotify {
				msg = e.Message
			}
		}
		h.renderForm(w, r, http.StatusUnprocessableEntity, f, msg)
		return
	}

	if flow.Has(effects, flow.EffectSubmitAnalysis) {
		id, err := h.service.Submit(r.Context(), next.Submission(csv))
		if err != nil {
			h.logger.Error("submit analysis", slog.Any("error", err))
			next, _, _ = flow.Transition(next, flow.Failed(flow.MsgServerError))
		} else {
			next.AuditID = id
			h.logger.Info("analysis submitted", slog.String("audit_id", id), slog.Int64("bytes", fileSize))
		}
	}
	h.saveFlow(sess, next)
	http.Redirect(w, r, "/audit", http.StatusSeeOther)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, flow.Event{Kind: flow.EventRetry})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, flow.Event{Kind: flow.EventReset})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, ev flow.Event) {
	sess := shared.SessionFromContext(r.Context())
	next, _, err := flow.Transition(h.loadFlow(sess), ev)
	if err != nil {
		h.logger.Debug("ignored flow event", slog.Any("error", err))
	} else {
		h.saveFlow(sess, next)
	}
	http.Redirect(w, r, "/audit", http.StatusSeeOther)
}

func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome, err := h.service.Outcome(r.Context(), id)
	if errors.Is(err, audit.ErrOutcomeNotFound) || (err == nil && (outcome.Status != audit.StatusSucceeded || outcome.Response == nil)) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.handleServerError(w, "load outcome", err)
		return
	}

	v, err, dup := h.pdfs.Do(id, func() (any, error) {
		if h.renderer == nil {
			return nil, errors.New("pdf renderer not configured")
		}
		doc, err := h.builder.Build(*outcome.Response)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), pdfRenderBudget)
		defer cancel()
		res, err := h.renderer.Render(ctx, doc)
		if err != nil {
			return nil, err
		}
		return res.PDF, nil
	})
	if err != nil {
		h.logger.Error("render pdf", slog.String("audit_id", id), slog.Any("error", err))
		if sess := sessionOf(r); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: msgPDFFailed})
		}
		http.Redirect(w, r, "/audit", http.StatusSeeOther)
		return
	}
	pdf := v.([]byte)
	name := auditreport.Filename(outcome.Response.Stats.ClinicName, h.now().UTC())
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("write pdf", slog.String("audit_id", id), slog.Bool("shared", dup), slog.Any("error", err))
	}
}

type resultPayload struct {
	ID          string          `json:"id"`
	Status      audit.Status    `json:"status"`
	Response    *audit.Response `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (h *Handler) result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome, err := h.service.Outcome(r.Context(), id)
	if errors.Is(err, audit.ErrOutcomeNotFound) {
		httpx.RespondError(w, fmt.Errorf("%w: audit %s", httpx.ErrNotFound, id))
		return
	}
	if err != nil {
		h.logger.Error("load outcome", slog.String("audit_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resultPayload{
		ID:          outcome.ID,
		Status:      outcome.Status,
		Response:    outcome.Response,
		Error:       outcome.Error,
		SubmittedAt: outcome.SubmittedAt,
		CompletedAt: outcome.CompletedAt,
	})
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, f flow.Flow, message string) {
	h.render(w, r, status, "pages/audit_form.html", view.TemplateData{
		Title: "Audit Flash No-Shows",
		Data:  newFormView(f, message),
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data view.TemplateData) {
	sess := sessionOf(r)
	if sess != nil {
		if h.csrf != nil {
			token, err := h.csrf.EnsureToken(r.Context(), sess)
			if err != nil {
				h.handleServerError(w, "ensure csrf token", err)
				return
			}
			data.CSRFToken = token
		}
		if data.Flash == nil {
			data.Flash = sess.PopFlash()
		}
	}
	data.CurrentPath = r.URL.Path
	if err := h.templates.RenderStatus(w, status, name, data); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) loadFlow(sess *shared.Session) flow.Flow {
	f := flow.New()
	if sess == nil {
		return f
	}
	ok, err := sess.GetJSON(flowSessionKey, &f)
	if err != nil || !ok {
		if err != nil {
			h.logger.Warn("decode flow", slog.Any("error", err))
		}
		return flow.New()
	}
	return f
}

func (h *Handler) saveFlow(sess *shared.Session, f flow.Flow) {
	if sess == nil {
		return
	}
	if err := sess.SetJSON(flowSessionKey, f); err != nil {
		h.logger.Error("store flow", slog.Any("error", err))
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func sessionOf(r *http.Request) *shared.Session {
	return shared.SessionFromContext(r.Context())
}

// parseAverageRevenue accepts "150", "150.5" and "150,5". Anything else
// yields 0, which the flow replaces with the default.
func parseAverageRevenue(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Email":
			return msgBadEmail
		case "ClinicName":
			return msgClinicLong
		}
	}
	return flow.MsgValidation
}
