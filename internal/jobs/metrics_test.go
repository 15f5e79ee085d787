package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("audit_archive_report").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("audit_archive_report").End(boom), boom)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				counts[family.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, counts["auditflash_jobs_total"])
	assert.Equal(t, 1.0, counts["auditflash_jobs_failures_total"])
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	err := errors.New("kept")
	assert.Equal(t, err, m.Track("mail_follow_up").End(err))
}
