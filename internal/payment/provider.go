package payment

import (
	"context"
	"errors"
)

// Webhook event types handled by the storefront.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// IntentInput holds the parameters for creating a payment intent.
type IntentInput struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is a payment intent as returned by the provider. The client
// secret is handed to the browser to complete payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// RefundInput holds the parameters for refunding a payment. A zero Amount
// refunds the full charge.
type RefundInput struct {
	IntentID string
	Amount   int64
	Reason   string
}

// RefundResult holds the result of a refund operation from the payment provider.
type RefundResult struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// WebhookEvent is a verified provider notification about an intent.
type WebhookEvent struct {
	ID             string
	Type           string
	IntentID       string
	Amount         int64
	FailureMessage string
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error)

	// Refund refunds a captured intent.
	Refund(ctx context.Context, input *RefundInput) (*RefundResult, error)

	// ParseWebhook verifies signature over payload and decodes the event.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
