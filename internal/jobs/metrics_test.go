package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// counterValue reads a counter from the registry by name and label values.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	next:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("ledger:integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:integrity").End(boom), boom)
	m.AddRepairs("ledger:integrity", 3)
	m.AddRepairs("ledger:integrity", 0)

	job := map[string]string{"job": "ledger:integrity"}
	require.Equal(t, 1.0, counterValue(t, reg, "cropledger_jobs_total", map[string]string{"job": "ledger:integrity", "status": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "cropledger_jobs_total", map[string]string{"job": "ledger:integrity", "status": "failure"}))
	require.Equal(t, 1.0, counterValue(t, reg, "cropledger_jobs_failures_total", job))
	require.Equal(t, 3.0, counterValue(t, reg, "cropledger_job_repairs_total", job))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("x").End(boom), boom)
	m.AddRepairs("x", 1)
}
