// Package relay forwards audit uploads to the analysis webhook.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

// DefaultTimeout keeps the upstream call under a 60 second execution ceiling.
const DefaultTimeout = 55 * time.Second

// Multipart field names understood by the webhook.
const (
	FieldCSV            = "csv"
	FieldClinicName     = "nom_cabinet"
	FieldAverageRevenue = "ca_moyen"
	FieldEmail          = "email"
)

var (
	// ErrTimeout is returned when the webhook does not answer in time.
	ErrTimeout = errors.New("relay: upstream timeout")
	// ErrMalformedPayload is returned when the webhook body is not JSON.
	ErrMalformedPayload = errors.New("relay: malformed upstream payload")
)

// StatusError reports a non-2xx webhook answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("n8n a répondu avec le statut : %d", e.Code)
}

// Observer receives one call per upstream request.
type Observer interface {
	ObserveRelay(outcome string, d time.Duration)
}

// Client talks to the webhook. The zero value is not usable; see NewClient.
type Client struct {
	webhookURL string
	timeout    time.Duration
	httpClient *http.Client
	observer   Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithObserver records relay metrics.
func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.observer = o }
}

// NewClient constructs a relay client for webhookURL.
func NewClient(webhookURL string, opts ...Option) *Client {
	c := &Client{
		webhookURL: strings.TrimSpace(webhookURL),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the configured upstream bound.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Forward posts body unmodified to the webhook and returns the raw JSON answer.
func (c *Client) Forward(ctx context.Context, body io.Reader, contentType string) (json.RawMessage, error) {
	if c == nil || c.webhookURL == "" {
		return nil, errors.New("relay: webhook url not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.do(ctx, body, contentType)
	if c.observer != nil {
		c.observer.ObserveRelay(outcomeLabel(err), time.Since(start))
	}
	return raw, err
}

func (c *Client) do(ctx context.Context, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}
	if !json.Valid(data) {
		return nil, ErrMalformedPayload
	}
	return json.RawMessage(data), nil
}

// Analyze builds the multipart body a browser would send, forwards it and
// decodes the answer.
func (c *Client) Analyze(ctx context.Context, sub audit.Submission) (audit.Response, error) {
	body, contentType, err := EncodeSubmission(sub)
	if err != nil {
		return audit.Response{}, err
	}
	raw, err := c.Forward(ctx, body, contentType)
	if err != nil {
		return audit.Response{}, err
	}
	var resp audit.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return audit.Response{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return resp, nil
}

// EncodeSubmission writes the webhook multipart form with the CSV as a file
// part. The e-mail field is omitted when blank.
func EncodeSubmission(sub audit.Submission) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	name := sub.FileName
	if name == "" {
		name = "rendez-vous.csv"
	}
	part, err := writer.CreateFormFile(FieldCSV, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, sub.CSV); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{FieldClinicName, strings.TrimSpace(sub.ClinicName)},
		{FieldAverageRevenue, strconv.FormatFloat(audit.NormaliseAverageRevenue(sub.AverageRevenue), 'f', -1, 64)},
	}
	if email := strings.TrimSpace(sub.Email); email != "" {
		fields = append(fields, [2]string{FieldEmail, email})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// Message returns the text shown to visitors for a relay error.
func Message(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return statusErr.Error()
	case errors.Is(err, ErrTimeout):
		return "L'analyse a dépassé le délai autorisé, veuillez réessayer"
	case errors.Is(err, ErrMalformedPayload):
		return "Réponse invalide du service d'analyse"
	default:
		return "Erreur serveur"
	}
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func outcomeLabel(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.As(err, &statusErr):
		return "upstream_status"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	default:
		return "network"
	}
}
