package razorpaywebhook

import "strings"

// Event is the envelope Razorpay posts for payout and transfer lifecycle
// changes. The entity sits under payload.payout.entity or
// payload.transfer.entity depending on the product.
type Event struct {
	ID        string  `json:"id"`
	Event     string  `json:"event"`
	CreatedAt int64   `json:"created_at"`
	Payload   Payload `json:"payload"`
}

type Payload struct {
	Payout   *EntityEnvelope `json:"payout,omitempty"`
	Transfer *EntityEnvelope `json:"transfer,omitempty"`
}

type EntityEnvelope struct {
	Entity Entity `json:"entity"`
}

// Entity is the payout or transfer the event describes. Amount is in the
// smallest currency unit, processed_at is unix seconds.
type Entity struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	UTR           string `json:"utr"`
	FailureReason string `json:"failure_reason"`
	ProcessedAt   int64  `json:"processed_at"`
}

// Entity returns whichever entity the payload carries, payout first.
func (e *Event) Entity() *Entity {
	if e == nil {
		return nil
	}
	if e.Payload.Payout != nil {
		return &e.Payload.Payout.Entity
	}
	if e.Payload.Transfer != nil {
		return &e.Payload.Transfer.Entity
	}
	return nil
}

// Action returns the lifecycle suffix of the event name, e.g. "processed"
// for "payout.processed". Empty when the event is not a payout or transfer
// event.
func (e *Event) Action() string {
	if e == nil {
		return ""
	}
	prefix, suffix, found := strings.Cut(e.Event, ".")
	if !found {
		return ""
	}
	if prefix != "payout" && prefix != "transfer" {
		return ""
	}
	return suffix
}
