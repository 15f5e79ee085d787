package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/audit"
)

type mockStore struct {
	leads     map[uuid.UUID]Lead
	lastLimit int
}

func newMockStore() *mockStore {
	return &mockStore{leads: make(map[uuid.UUID]Lead)}
}

func (m *mockStore) Insert(_ context.Context, lead Lead) error {
	if _, ok := m.leads[lead.ID]; !ok {
		m.leads[lead.ID] = lead
	}
	return nil
}

func (m *mockStore) Complete(_ context.Context, lead Lead) error {
	cur, ok := m.leads[lead.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = lead.Status
	cur.NoShowRate = lead.NoShowRate
	cur.ErrorMessage = lead.ErrorMessage
	cur.CompletedAt = lead.CompletedAt
	m.leads[lead.ID] = cur
	return nil
}

func (m *mockStore) SetReportPath(_ context.Context, id uuid.UUID, path string) error {
	cur, ok := m.leads[id]
	if !ok {
		return ErrNotFound
	}
	cur.ReportPath = path
	m.leads[id] = cur
	return nil
}

func (m *mockStore) Get(_ context.Context, id uuid.UUID) (Lead, error) {
	cur, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return cur, nil
}

func (m *mockStore) List(_ context.Context, limit int) ([]Lead, error) {
	m.lastLimit = limit
	out := make([]Lead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, l)
	}
	return out, nil
}

func TestServiceLifecycle(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	ctx := context.Background()
	id := uuid.NewString()
	submitted := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Record(ctx, audit.Outcome{ID: id, Status: audit.StatusPending, ClinicName: "Cabinet", Email: "dr@example.com", AverageRevenue: 150, SubmittedAt: submitted}))

	completed := submitted.Add(40 * time.Second)
	require.NoError(t, svc.Complete(ctx, audit.Outcome{
		ID:          id,
		Status:      audit.StatusSucceeded,
		ClinicName:  "Cabinet",
		Response:    &audit.Response{Success: true, Stats: audit.Stats{Global: &audit.Global{Rate: 8.5}}},
		CompletedAt: &completed,
	}))
	require.NoError(t, svc.AttachReport(ctx, id, "/var/reports/a.pdf"))

	lead, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusSucceeded, lead.Status)
	require.NotNil(t, lead.NoShowRate)
	assert.Equal(t, 8.5, *lead.NoShowRate)
	assert.Equal(t, "/var/reports/a.pdf", lead.ReportPath)
	assert.Equal(t, submitted, lead.CreatedAt)
	assert.True(t, lead.HasEmail())
}

func TestServiceRejectsMalformedIDs(t *testing.T) {
	svc := NewService(newMockStore())
	ctx := context.Background()

	assert.Error(t, svc.Record(ctx, audit.Outcome{ID: "not-a-uuid"}))
	assert.Error(t, svc.AttachReport(ctx, "nope", "/tmp/x.pdf"))
	_, err := svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFromOutcomeSkipsRateOnFailure(t *testing.T) {
	lead, err := FromOutcome(audit.Outcome{
		ID:       uuid.NewString(),
		Status:   audit.StatusFailed,
		Error:    "CSV illisible",
		Response: &audit.Response{Stats: audit.Stats{Global: &audit.Global{Rate: 3}}},
	})
	require.NoError(t, err)
	assert.Nil(t, lead.NoShowRate)
	assert.Equal(t, "CSV illisible", lead.ErrorMessage)
}

func TestLatestClampsLimit(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)

	_, err := svc.Latest(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastLimit)

	_, err = svc.Latest(context.Background(), 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, store.lastLimit)
}
