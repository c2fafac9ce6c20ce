package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPayoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPayoutMetrics(reg)
	metrics.IncLedgerMutation("CREDIT", "SALE")
	metrics.IncSettlementTransition("CREATED", "RESERVED")
	metrics.ObserveSettlementDuration("COMPLETED", 90*time.Second)
	metrics.IncWebhookEvent("payout.processed", "applied")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_mutations_total", "type", "CREDIT"); err != nil {
		t.Fatalf("fetch ledger mutations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ledger_mutations_total=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "settlement_transitions_total", "to", "RESERVED"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected settlement_transitions_total=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_total", "event", "payout.processed"); err != nil {
		t.Fatalf("fetch webhook events: %v", err)
	} else if got != 1 {
		t.Fatalf("expected webhook_events_total=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "settlement_duration_seconds", "status", "COMPLETED"); err != nil {
		t.Fatalf("fetch settlement duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestPayoutMetricsNilRegisterer(t *testing.T) {
	metrics := NewPayoutMetrics(nil)
	metrics.IncLedgerMutation("DEBIT", "SETTLEMENT")
	metrics.IncSettlementTransition("", "")
	metrics.ObserveSettlementDuration("FAILED", time.Second)
	metrics.IncWebhookEvent("", "ignored")
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

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
