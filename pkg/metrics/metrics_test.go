package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_IndependentRegistries(t *testing.T) {
	// Building twice on separate registries must not panic on duplicate registration.
	a := NewCollectorWithRegistry("admissions_test", prometheus.NewRegistry())
	b := NewCollectorWithRegistry("admissions_test", prometheus.NewRegistry())

	a.RecordRiskAssessment("high")
	a.RecordRiskAssessment("high")
	b.RecordRiskAssessment("high")

	if got := testutil.ToFloat64(a.RiskAssessments.WithLabelValues("high")); got != 2 {
		t.Errorf("collector a high = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.RiskAssessments.WithLabelValues("high")); got != 1 {
		t.Errorf("collector b high = %v, want 1", got)
	}
}

func TestCollector_RecordIngestedRecords(t *testing.T) {
	c := NewCollectorWithRegistry("admissions_test", prometheus.NewRegistry())

	c.RecordIngestedRecords("inserted", 5)
	c.RecordIngestedRecords("inserted", 0)
	c.RecordIngestedRecords("skipped", 2)

	if got := testutil.ToFloat64(c.IngestionRecordsTotal.WithLabelValues("inserted")); got != 5 {
		t.Errorf("inserted = %v, want 5", got)
	}
	if got := testutil.ToFloat64(c.IngestionRecordsTotal.WithLabelValues("skipped")); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}
}

func TestCollector_RecordAnalysis(t *testing.T) {
	c := NewCollectorWithRegistry("admissions_test", prometheus.NewRegistry())

	c.RecordAnalysis(3, "falling", "medium")

	if got := testutil.ToFloat64(c.TrendClassifications.WithLabelValues("falling")); got != 1 {
		t.Errorf("falling = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.VolatilityLevels.WithLabelValues("medium")); got != 1 {
		t.Errorf("medium = %v, want 1", got)
	}
}
