package rental

import (
	"encoding/json"
	"time"
)

const (
	EventOrderConfirmed = "OrderConfirmed"
	EventPaymentUpdated = "PaymentUpdated"
)

// Envelope wraps every event on the bus. CorrelationID is the order id
// (or intent id for payment events) so per-entity ordering survives
// partitioning.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderConfirmedPayload struct {
	OrderID    string `json:"order_id"`
	Reference  string `json:"reference"`
	ProfileID  string `json:"profile_id"`
	TotalCents int    `json:"total_cents"`
	Currency   string `json:"currency"`
}

// GatewayEvent is the payment gateway's webhook body, relayed verbatim
// onto the payment events topic after signature verification.
type GatewayEvent struct {
	Type             string `json:"type"`
	IntentID         string `json:"paymentIntentId"`
	Status           string `json:"status"`
	LastPaymentError string `json:"lastPaymentError,omitempty"`
}
