package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/marketbay/payouts-backend/pkg/logger"
)

// SettlementEvent is the notice published when a settlement changes state.
type SettlementEvent struct {
	Type         string    `json:"type"`
	SettlementID string    `json:"settlement_id"`
	SellerID     uuid.UUID `json:"seller_id"`
	NetAmount    string    `json:"net_amount"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers settlement notices. Delivery is best effort: failures
// are logged and never surfaced to the caller.
type Publisher interface {
	SettlementChanged(ctx context.Context, event SettlementEvent)
}

// Sink abstracts the transport a notice is written to.
type Sink interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) error
}

type publisher struct {
	sink Sink
	logg *logger.Logger
}

// NewPublisher wires a settlement notice publisher. A nil sink yields a
// publisher that drops every notice, for deployments without Pub/Sub.
func NewPublisher(sink Sink, logg *logger.Logger) (Publisher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &publisher{sink: sink, logg: logg}, nil
}

func (p *publisher) SettlementChanged(ctx context.Context, event SettlementEvent) {
	if p.sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logg.Error(ctx, "settlement notice encode failed", err)
		return
	}
	attrs := map[string]string{
		"type":          event.Type,
		"settlement_id": event.SettlementID,
	}
	if err := p.sink.Publish(ctx, data, attrs); err != nil {
		p.logg.Error(p.logg.WithSettlementID(ctx, event.SettlementID), "settlement notice publish failed", err)
	}
}

// PubSubSink writes notices to a Google Cloud Pub/Sub publisher handle.
type PubSubSink struct {
	publisher *pubsub.Publisher
}

// NewPubSubSink wraps a Pub/Sub publisher handle.
func NewPubSubSink(pub *pubsub.Publisher) *PubSubSink {
	return &PubSubSink{publisher: pub}
}

func (s *PubSubSink) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	if s == nil || s.publisher == nil {
		return fmt.Errorf("pubsub publisher not configured")
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	_, err := result.Get(ctx)
	return err
}
