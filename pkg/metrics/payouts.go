package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics records ledger, settlement, and webhook activity.
type PayoutMetrics struct {
	ledgerMutations       *prometheus.CounterVec
	settlementTransitions *prometheus.CounterVec
	settlementDuration    *prometheus.HistogramVec
	webhookEvents         *prometheus.CounterVec
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	ledgerMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Wallet ledger mutations by type and category.",
	}, []string{"type", "category"})
	settlementTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transitions_total",
		Help: "Settlement status transitions.",
	}, []string{"from", "to"})
	settlementDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Time from settlement creation to a terminal status.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"status"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Received payout webhook events by type and outcome.",
	}, []string{"event", "outcome"})
	reg.MustRegister(ledgerMutations, settlementTransitions, settlementDuration, webhookEvents)
	return &PayoutMetrics{
		ledgerMutations:       ledgerMutations,
		settlementTransitions: settlementTransitions,
		settlementDuration:    settlementDuration,
		webhookEvents:         webhookEvents,
	}
}

// IncLedgerMutation increments the ledger mutation counter.
func (p *PayoutMetrics) IncLedgerMutation(txType, category string) {
	if p == nil || p.ledgerMutations == nil {
		return
	}
	p.ledgerMutations.WithLabelValues(normalizeLabel(txType), normalizeLabel(category)).Inc()
}

// IncSettlementTransition increments the transition counter for a status change.
func (p *PayoutMetrics) IncSettlementTransition(from, to string) {
	if p == nil || p.settlementTransitions == nil {
		return
	}
	p.settlementTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveSettlementDuration records how long a settlement took to reach a terminal status.
func (p *PayoutMetrics) ObserveSettlementDuration(status string, duration time.Duration) {
	if p == nil || p.settlementDuration == nil {
		return
	}
	p.settlementDuration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

// IncWebhookEvent increments the webhook counter for an event and outcome.
func (p *PayoutMetrics) IncWebhookEvent(event, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
