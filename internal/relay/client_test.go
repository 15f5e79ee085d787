package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveRelay(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

const okPayload = `{"success":true,"stats":{"nom_cabinet":"Cabinet","periode":{"debut":"2025-01-01","fin":"2025-03-31","nb_mois":3},"global":{"total_rdv":10,"no_shows":1,"honores":9,"taux":10}},"rapport_texte":"# Titre","pdf_url":null,"email_sent":false}`

func TestAnalyzeSendsMultipartFields(t *testing.T) {
	var (
		gotName, gotClinic, gotRevenue, gotCSV string
		hasEmail                               bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile(FieldCSV)
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		gotCSV = string(data)
		gotName = header.Filename
		gotClinic = r.FormValue(FieldClinicName)
		gotRevenue = r.FormValue(FieldAverageRevenue)
		_, hasEmail = r.MultipartForm.Value[FieldEmail]
		_, _ = w.Write([]byte(okPayload))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := NewClient(srv.URL, WithObserver(obs))
	resp, err := client.Analyze(context.Background(), audit.Submission{
		CSV:        "date;statut\n2025-01-02;absent\n",
		FileName:   "export.csv",
		ClinicName: "  Cabinet Dupont ",
		Email:      "   ",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Cabinet", resp.Stats.ClinicName)
	assert.Equal(t, "export.csv", gotName)
	assert.Contains(t, gotCSV, "absent")
	assert.Equal(t, "Cabinet Dupont", gotClinic)
	assert.Equal(t, "150", gotRevenue)
	assert.False(t, hasEmail)
	assert.Equal(t, []string{"success"}, obs.outcomes)
}

func TestEncodeSubmissionKeepsEmail(t *testing.T) {
	body, contentType, err := EncodeSubmission(audit.Submission{CSV: "a", ClinicName: "C", AverageRevenue: 90, Email: "dr@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	require.NoError(t, req.ParseMultipartForm(1<<20))
	assert.Equal(t, "dr@example.com", req.FormValue(FieldEmail))
	assert.Equal(t, "90", req.FormValue(FieldAverageRevenue))
}

func TestForwardNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := NewClient(srv.URL, WithObserver(obs)).Forward(context.Background(), strings.NewReader("x"), "text/plain")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "n8n a répondu avec le statut : 502", Message(err))
	assert.Equal(t, []string{"upstream_status"}, obs.outcomes)
}

func TestForwardTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, client.Timeout())

	_, err := client.Forward(context.Background(), strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "L'analyse a dépassé le délai autorisé, veuillez réessayer", Message(err))
}

func TestForwardMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Forward(context.Background(), strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Equal(t, "Réponse invalide du service d'analyse", Message(err))
}

func TestForwardWithoutURL(t *testing.T) {
	_, err := NewClient(" ").Forward(context.Background(), strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Equal(t, "Erreur serveur", Message(err))
	assert.Equal(t, DefaultTimeout, NewClient("http://example").Timeout())
}
