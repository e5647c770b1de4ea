package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FeliksML/web-cellar-sub000/pkg/httpclient"
)

// DefaultWebhookTolerance is how old a signed webhook may be.
const DefaultWebhookTolerance = 5 * time.Minute

// StripeConfig configures the Stripe provider.
type StripeConfig struct {
	APIURL        string
	SecretKey     string
	WebhookSecret string
	Tolerance     time.Duration
}

// StripeProvider talks to the Stripe REST API with form-encoded requests.
type StripeProvider struct {
	client httpclient.Doer
	cfg    StripeConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewStripeProvider creates a Stripe provider. A nil client gets a retrying
// client behind a circuit breaker.
func NewStripeProvider(cfg StripeConfig, client httpclient.Doer, logger *slog.Logger) *StripeProvider {
	if client == nil {
		client = httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("stripe"),
			logger,
		)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.stripe.com"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultWebhookTolerance
	}
	return &StripeProvider{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreateIntent creates a payment intent with automatic payment methods.
func (p *StripeProvider) CreateIntent(ctx context.Context, input *IntentInput) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(input.Amount, 10))
	form.Set("currency", currencyOrDefault(input.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	if input.Description != "" {
		form.Set("description", input.Description)
	}
	for k, v := range input.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent Intent
	if err := p.post(ctx, "/v1/payment_intents", form, input.IdempotencyKey, &intent); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	p.logger.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", intent.Amount),
	)
	return &intent, nil
}

// Refund creates a refund for a payment intent.
func (p *StripeProvider) Refund(ctx context.Context, input *RefundInput) (*RefundResult, error) {
	reason := input.Reason
	if reason == "" {
		reason = "requested_by_customer"
	}

	form := url.Values{}
	form.Set("payment_intent", input.IntentID)
	form.Set("reason", reason)
	if input.Amount > 0 {
		form.Set("amount", strconv.FormatInt(input.Amount, 10))
	}

	var refund RefundResult
	if err := p.post(ctx, "/v1/refunds", form, "refund-"+input.IntentID, &refund); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	return &refund, nil
}

func (p *StripeProvider) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(p.cfg.SecretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "stripe")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode stripe response: %w", err)
	}
	return nil
}

// stripeEvent is the subset of a Stripe event the storefront reads.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string `json:"id"`
			Amount           int64  `json:"amount"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if err := VerifySignature(payload, signature, p.cfg.WebhookSecret, p.cfg.Tolerance, p.now()); err != nil {
		return nil, err
	}
	return decodeEvent(payload)
}

func decodeEvent(payload []byte) (*WebhookEvent, error) {
	var ev stripeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	out := &WebhookEvent{
		ID:       ev.ID,
		Type:     ev.Type,
		IntentID: ev.Data.Object.ID,
		Amount:   ev.Data.Object.Amount,
	}
	if ev.Data.Object.LastPaymentError != nil {
		out.FailureMessage = ev.Data.Object.LastPaymentError.Message
	}
	return out, nil
}

// VerifySignature checks a Stripe-Signature header ("t=...,v1=...") against
// payload. Any v1 signature may match; the timestamp must be within
// tolerance of now.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if age := now.Sub(time.Unix(ts, 0)); age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := Sign(payload, secret, timestamp)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
}

// Sign computes the v1 signature of payload at timestamp.
func Sign(payload []byte, secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = io.WriteString(mac, timestamp)
	_, _ = io.WriteString(mac, ".")
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "usd"
	}
	return strings.ToLower(c)
}
