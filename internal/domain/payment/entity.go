package payment

import "encoding/json"

// GatewayStatus is the settlement state reported by the external processor.
type GatewayStatus string

const (
	GatewayApproved GatewayStatus = "approved"
	GatewayRejected GatewayStatus = "rejected"
	GatewayPending  GatewayStatus = "pending"
)

// WebhookEvent is the processor's settlement notification. Only the approved
// status moves money; rejected finalizes the attempt, and pending is ignored
// until a later notification arrives.
type WebhookEvent struct {
	ExternalPaymentID string          `json:"external_payment_id"`
	Status            GatewayStatus   `json:"status"`
	AmountCents       int64           `json:"amount_cents"`
	RawPayload        json.RawMessage `json:"-"`
}
