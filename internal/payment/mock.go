package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockConfig configures the mock payment provider.
type MockConfig struct {
	// WebhookSecret, when set, is checked against the Stripe-Signature
	// header exactly like the Stripe provider does.
	WebhookSecret string

	// AllowUnsigned accepts webhooks without a signature when no secret is
	// configured. Only development setups should enable it.
	AllowUnsigned bool
}

// MockProvider is a payment provider that always succeeds. It is used when
// no Stripe key is configured.
type MockProvider struct {
	cfg     MockConfig
	now     func() time.Time
	mu      sync.Mutex
	intents map[string]*Intent
}

// NewMockProvider creates a new mock payment provider.
func NewMockProvider(cfg MockConfig) *MockProvider {
	return &MockProvider{
		cfg:     cfg,
		now:     time.Now,
		intents: make(map[string]*Intent),
	}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// CreateIntent returns a fake intent awaiting payment.
func (p *MockProvider) CreateIntent(_ context.Context, input *IntentInput) (*Intent, error) {
	id := "pi_mock_" + uuid.NewString()
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_mock",
		Amount:       input.Amount,
		Currency:     currencyOrDefault(input.Currency),
		Status:       "requires_payment_method",
	}

	p.mu.Lock()
	p.intents[id] = intent
	p.mu.Unlock()
	return intent, nil
}

// Refund simulates a payment refund that always succeeds.
func (p *MockProvider) Refund(_ context.Context, input *RefundInput) (*RefundResult, error) {
	amount := input.Amount
	if amount == 0 {
		p.mu.Lock()
		if intent, ok := p.intents[input.IntentID]; ok {
			amount = intent.Amount
		}
		p.mu.Unlock()
	}
	return &RefundResult{
		ID:     "re_mock_" + uuid.NewString(),
		Amount: amount,
		Status: "succeeded",
		Reason: input.Reason,
	}, nil
}

// ParseWebhook decodes a Stripe-shaped event. The signature is verified
// when a secret is configured; otherwise the event is rejected unless
// unsigned webhooks are allowed.
func (p *MockProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	switch {
	case p.cfg.WebhookSecret != "":
		if err := VerifySignature(payload, signature, p.cfg.WebhookSecret, DefaultWebhookTolerance, p.now()); err != nil {
			return nil, err
		}
	case !p.cfg.AllowUnsigned:
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	return decodeEvent(payload)
}
