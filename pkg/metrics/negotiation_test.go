package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNegotiationMetricsExportCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewNegotiationMetrics(reg)

	metrics.ObserveClaim("granted")
	metrics.ObserveClaim("granted")
	metrics.ObserveClaim("already_locked")
	metrics.ObserveExpiry()
	metrics.ObserveTransition("confirmed")
	metrics.ObserveRating()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "reservation_claims_total", "result", "granted"); err != nil {
		t.Fatalf("fetch granted claims: %v", err)
	} else if got != 2 {
		t.Fatalf("expected granted=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "reservation_claims_total", "result", "already_locked"); err != nil {
		t.Fatalf("fetch locked claims: %v", err)
	} else if got != 1 {
		t.Fatalf("expected already_locked=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "transaction_transitions_total", "to", "confirmed"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected confirmed=1, got %f", got)
	}
}

func TestNegotiationMetricsNilSafe(t *testing.T) {
	var metrics *NegotiationMetrics
	metrics.ObserveClaim("granted")
	metrics.ObserveExpiry()
	metrics.ObserveTransition("confirmed")
	metrics.ObserveRating()

	empty := NewNegotiationMetrics(nil)
	empty.ObserveClaim("")
	empty.ObserveExpiry()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
