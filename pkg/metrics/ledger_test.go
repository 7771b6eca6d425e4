package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLedgerMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.IncReservation("medicine", OutcomeReserved)
	m.IncReservation("medicine", OutcomeReserved)
	m.IncReservation("blood", OutcomeInsufficient)
	m.IncRelease("medicine")
	m.AddUnitsReserved("medicine", 5)
	m.AddUnitsReserved("medicine", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "ledger_reservations_total", map[string]string{"kind": "medicine", "outcome": OutcomeReserved}); err != nil {
		t.Fatalf("fetch reservations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected reservations=2, got %f", got)
	}

	if got, err := counterValue(mfs, "ledger_reservations_total", map[string]string{"kind": "blood", "outcome": OutcomeInsufficient}); err != nil {
		t.Fatalf("fetch insufficient: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient=1, got %f", got)
	}

	if got, err := counterValue(mfs, "ledger_releases_total", map[string]string{"kind": "medicine"}); err != nil {
		t.Fatalf("fetch releases: %v", err)
	} else if got != 1 {
		t.Fatalf("expected releases=1, got %f", got)
	}

	if got, err := counterValue(mfs, "ledger_units_reserved_total", map[string]string{"kind": "medicine"}); err != nil {
		t.Fatalf("fetch units: %v", err)
	} else if got != 5 {
		t.Fatalf("expected units=5, got %f", got)
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var m *LedgerMetrics
	m.IncReservation("medicine", OutcomeReserved)
	m.IncRelease("blood")
	m.AddUnitsReserved("blood", 2)

	empty := NewLedgerMetrics(nil)
	empty.IncReservation("medicine", OutcomeError)
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !matchLabels(metric, labels) {
				continue
			}
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q with labels %v not found", name, labels)
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	seen := make(map[string]string, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if seen[k] != v {
			return false
		}
	}
	return true
}
