package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStripe(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := httpclient.NewWithHTTPClient(srv.Client(), httpclient.Config{})
	return NewStripeProvider(StripeConfig{
		APIURL:        srv.URL,
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
	}, client, testLogger())
}

const succeededEvent = `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","amount":2500}}}`

// --- Stripe API Tests ---

func TestStripeProvider_CreateIntent(t *testing.T) {
	p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_123", user)
		assert.Equal(t, "order-BB-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "BB-1", r.PostForm.Get("metadata[order_number]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret_abc","amount":2500,"currency":"usd","status":"requires_payment_method"}`))
	})

	intent, err := p.CreateIntent(context.Background(), &IntentInput{
		Amount:         2500,
		Metadata:       map[string]string{"order_number": "BB-1"},
		IdempotencyKey: "order-BB-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, int64(2500), intent.Amount)
}

func TestStripeProvider_CreateIntent_CardDeclined(t *testing.T) {
	p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})

	_, err := p.CreateIntent(context.Background(), &IntentInput{Amount: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestStripeProvider_Refund(t *testing.T) {
	p := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_123", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "requested_by_customer", r.PostForm.Get("reason"))
		assert.Empty(t, r.PostForm.Get("amount"))

		_, _ = w.Write([]byte(`{"id":"re_1","amount":2500,"status":"succeeded","reason":"requested_by_customer"}`))
	})

	res, err := p.Refund(context.Background(), &RefundInput{IntentID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, "re_1", res.ID)
	assert.Equal(t, "succeeded", res.Status)
}

// --- Webhook Tests ---

func signedHeader(payload []byte, secret string, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + Sign(payload, secret, t)
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	p := newTestStripe(t, func(http.ResponseWriter, *http.Request) {})
	now := time.Unix(1_773_000_000, 0)
	p.now = func() time.Time { return now }
	payload := []byte(succeededEvent)

	ev, err := p.ParseWebhook(payload, signedHeader(payload, "whsec_test", now.Add(-time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, int64(2500), ev.Amount)
}

func TestVerifySignature_Rejects(t *testing.T) {
	payload := []byte(succeededEvent)
	now := time.Unix(1_773_000_000, 0)

	tests := []struct {
		name   string
		header string
		secret string
	}{
		{"wrong secret", signedHeader(payload, "whsec_other", now), "whsec_test"},
		{"too old", signedHeader(payload, "whsec_test", now.Add(-10*time.Minute)), "whsec_test"},
		{"malformed", "garbage", "whsec_test"},
		{"no secret configured", signedHeader(payload, "whsec_test", now), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(payload, tt.header, tt.secret, DefaultWebhookTolerance, now)
			assert.True(t, errors.Is(err, ErrInvalidSignature))
		})
	}
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	now := time.Unix(1_773_000_000, 0)
	header := signedHeader([]byte(succeededEvent), "whsec_test", now)
	tampered := []byte(strings.Replace(succeededEvent, "2500", "1", 1))

	assert.ErrorIs(t, VerifySignature(tampered, header, "whsec_test", DefaultWebhookTolerance, now), ErrInvalidSignature)
}

func TestDecodeEvent_FailureMessage(t *testing.T) {
	ev, err := decodeEvent([]byte(`{"id":"evt_2","type":"payment_intent.payment_failed",
		"data":{"object":{"id":"pi_9","amount":100,"last_payment_error":{"message":"insufficient funds"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventIntentFailed, ev.Type)
	assert.Equal(t, "insufficient funds", ev.FailureMessage)
}

// --- Mock Provider Tests ---

func TestMockProvider(t *testing.T) {
	p := NewMockProvider(MockConfig{AllowUnsigned: true})
	ctx := context.Background()

	intent, err := p.CreateIntent(ctx, &IntentInput{Amount: 1500})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(intent.ID, "pi_mock_"))
	assert.Equal(t, intent.ID+"_secret_mock", intent.ClientSecret)

	refund, err := p.Refund(ctx, &RefundInput{IntentID: intent.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), refund.Amount)

	ev, err := p.ParseWebhook([]byte(succeededEvent), "")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", ev.IntentID)
}

func TestMockProvider_ParseWebhook(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(succeededEvent)

	t.Run("rejects unsigned events by default", func(t *testing.T) {
		p := NewMockProvider(MockConfig{})

		_, err := p.ParseWebhook(payload, "")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("verifies with configured secret", func(t *testing.T) {
		p := NewMockProvider(MockConfig{WebhookSecret: "whsec_mock", AllowUnsigned: true})
		p.now = func() time.Time { return now }

		_, err := p.ParseWebhook(payload, "")
		assert.ErrorIs(t, err, ErrInvalidSignature)

		_, err = p.ParseWebhook(payload, "t="+ts+",v1="+Sign(payload, "other", ts))
		assert.ErrorIs(t, err, ErrInvalidSignature)

		ev, err := p.ParseWebhook(payload, "t="+ts+",v1="+Sign(payload, "whsec_mock", ts))
		require.NoError(t, err)
		assert.Equal(t, "pi_123", ev.IntentID)
	})
}
