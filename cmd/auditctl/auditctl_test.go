package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const sampleJSON = `{
  "success": true,
  "stats": {
    "nom_cabinet": "Cabinet Dr. Martin",
    "periode": {"debut": "2025-01-01", "fin": "2025-06-30", "nb_mois": 6},
    "global": {"total_rdv": 1200, "no_shows": 96, "honores": 1104, "taux": 8, "ca_moyen": 150, "ca_perdu_mois": 2400, "ca_perdu_an": 28800},
    "top_3_pires": [{"jour": "Lundi", "heure": "09:00", "total": 80, "noShows": 14, "taux": 17.5, "ca_perdu": 2100}],
    "top_3_meilleurs": [],
    "potentiel": {"passage_5": 10800, "passage_45": 12960}
  },
  "rapport_texte": "# Synthèse\nVotre taux est élevé.",
  "pdf_url": null,
  "email_sent": false
}`

func TestBlocksCommandReadsStdin(t *testing.T) {
	out, err := run(t, "# Titre\n\nTexte\n- point\n1. étape\n## RECOMMANDATIONS PRIORITAIRES", "blocks", "--rewrite")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "h1   Titre", lines[0])
	assert.Equal(t, "p    Texte", lines[1])
	assert.Equal(t, "li   point", lines[2])
	assert.Equal(t, "li   étape", lines[3])
	assert.Equal(t, "h2   ACTIONS IMMÉDIATES (7 PREMIERS JOURS)", lines[4])
}

func TestRenderCommandWritesHTML(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "response.json")
	require.NoError(t, os.WriteFile(in, []byte(sampleJSON), 0o600))

	out, err := run(t, "", "render", "--in", in, "--html", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "Cabinet Dr. Martin")
}

func TestRenderCommandRejectsFailedResponse(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "response.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"success":false,"error":"CSV invalide"}`), 0o600))

	_, err := run(t, "", "render", "--in", in, "--html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV invalide")
}

func TestAnalyzeCommandSavesResponse(t *testing.T) {
	var gotClinic, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotClinic = r.FormValue("nom_cabinet")
		if _, header, err := r.FormFile("csv"); err == nil {
			gotFile = header.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("date;statut\n"), 0o600))
	outPath := filepath.Join(dir, "response.json")

	_, err := run(t, "", "analyze", csvPath, "--clinic", "Cabinet Dr. Martin", "--webhook", srv.URL, "--out", outPath)
	require.NoError(t, err)
	assert.Equal(t, "Cabinet Dr. Martin", gotClinic)
	assert.Equal(t, "export.csv", gotFile)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var resp audit.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 6, resp.Stats.Period.MonthCount)
}

func TestJobsTriggerRejectsUnknownTask(t *testing.T) {
	cli := NewJobsCLI("127.0.0.1:0")
	defer func() { _ = cli.Close() }()
	_, err := cli.Trigger(t.Context(), "unknown:task", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported job")
}
