package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/httpclient"
)

// --- Test Helpers ---

type recordingSender struct {
	sent []*Message
	err  error
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, msg *Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder() *domain.Order {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	return &domain.Order{
		OrderNumber:       "BB-260310-AB12",
		Status:            domain.OrderStatusPending,
		FulfillmentType:   domain.FulfillmentDelivery,
		ContactEmail:      "jane@example.com",
		RequestedDate:     &date,
		RequestedTimeSlot: "morning",
		Subtotal:          2000,
		ShippingCost:      500,
		DiscountAmount:    200,
		Total:             2300,
		Items: []domain.OrderItem{
			{ProductName: "Protein Brownie", Quantity: 2, UnitPrice: 1000, Subtotal: 2000},
		},
	}
}

// --- Notifier Tests ---

func TestNotifier_SendOrderConfirmation(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "Beasty Baker", testLogger())

	require.NoError(t, n.SendOrderConfirmation(context.Background(), sampleOrder()))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, msg.To)
	assert.Equal(t, "Order Confirmed - BB-260310-AB12", msg.Subject)
	assert.Contains(t, msg.HTML, "Thank you for your order!")
	assert.Contains(t, msg.HTML, "Protein Brownie x 2")
	assert.Contains(t, msg.HTML, "$20.00")
	assert.Contains(t, msg.HTML, "$5.00")
	assert.Contains(t, msg.HTML, "-$2.00")
	assert.Contains(t, msg.HTML, "$23.00")
	assert.Contains(t, msg.HTML, "Thursday, March 12, 2026")
	assert.Contains(t, msg.HTML, "Delivery Information")
	assert.Contains(t, msg.HTML, "Beasty Baker")
}

func TestNotifier_SendOrderConfirmation_Pickup(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "Beasty Baker", testLogger())
	o := sampleOrder()
	o.FulfillmentType = domain.FulfillmentPickup
	o.RequestedTimeSlot = ""
	o.DiscountAmount = 0

	require.NoError(t, n.SendOrderConfirmation(context.Background(), o))

	html := sender.sent[0].HTML
	assert.Contains(t, html, "Pickup Information")
	assert.Contains(t, html, "Standard delivery")
	assert.NotContains(t, html, "Discount")
}

func TestNotifier_SendOrderStatusUpdate(t *testing.T) {
	tests := []struct {
		status  string
		subject string
		label   string
	}{
		{domain.OrderStatusConfirmed, "Your order has been confirmed - BB-260310-AB12", "Confirmed"},
		{domain.OrderStatusPreparing, "We're preparing your order - BB-260310-AB12", "Preparing"},
		{domain.OrderStatusReady, "Your order is ready - BB-260310-AB12", "Ready"},
		{domain.OrderStatusOutForDelivery, "Your order is on its way - BB-260310-AB12", "Out For Delivery"},
		{domain.OrderStatusDelivered, "Your order has been delivered - BB-260310-AB12", "Delivered"},
		{domain.OrderStatusCancelled, "Your order has been cancelled - BB-260310-AB12", "Cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			sender := &recordingSender{}
			n := NewNotifier(sender, "Beasty Baker", testLogger())
			o := sampleOrder()
			o.Status = tt.status

			require.NoError(t, n.SendOrderStatusUpdate(context.Background(), o))

			require.Len(t, sender.sent, 1)
			assert.Equal(t, tt.subject, sender.sent[0].Subject)
			assert.Contains(t, sender.sent[0].HTML, tt.label)
			assert.Contains(t, sender.sent[0].HTML, emojiFor(tt.status))
		})
	}
}

func TestNotifier_SendLowStockAlert(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "Beasty Baker", testLogger())

	require.NoError(t, n.SendLowStockAlert(context.Background(), "ops@example.com", nil))
	assert.Empty(t, sender.sent)

	products := []domain.LowStockProduct{
		{ID: "prod-001", Name: "Protein Brownie", SKU: "BRN-001", StockQuantity: 2, LowStockThreshold: 5},
		{ID: "prod-002", Name: "Keto Cookie", SKU: "CKE-001", StockQuantity: 0, LowStockThreshold: 5},
	}
	require.NoError(t, n.SendLowStockAlert(context.Background(), "ops@example.com", products))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, sender.sent[0].To)
	assert.Equal(t, "Low stock: 2 products", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].HTML, "BRN-001")
	assert.Contains(t, sender.sent[0].HTML, "0 / 5")
}

func TestNotifier_SendNewOrderAlert(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, "Beasty Baker", testLogger())

	require.NoError(t, n.SendNewOrderAlert(context.Background(), "hello@beastybaker.com", sampleOrder()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "New order BB-260310-AB12", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].HTML, "jane@example.com")
}

func TestNotifier_SenderError(t *testing.T) {
	n := NewNotifier(&recordingSender{err: errors.New("smtp down")}, "Beasty Baker", testLogger())

	err := n.SendOrderConfirmation(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Out For Delivery", statusLabel("out_for_delivery"))
	assert.Equal(t, "Picked Up", statusLabel("picked_up"))
	assert.Equal(t, "📋", emojiFor("unknown"))
}

// --- Sender Tests ---

func TestNewSender(t *testing.T) {
	s, err := NewSender(SenderConfig{Provider: ProviderConsole}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, ProviderConsole, s.Name())

	s, err = NewSender(SenderConfig{Provider: ProviderResend, APIURL: "https://api.resend.com", APIKey: "re_test"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, ProviderResend, s.Name())

	_, err = NewSender(SenderConfig{Provider: "pigeon"}, testLogger())
	assert.Error(t, err)
}

func TestConsoleSender_Send(t *testing.T) {
	s := NewConsoleSender(testLogger())
	assert.NoError(t, s.Send(context.Background(), &Message{To: []string{"a@b.c"}, Subject: "hi", HTML: "<p>hi</p>"}))
}

func TestResendSender_Send(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer srv.Close()

	client := httpclient.NewWithHTTPClient(srv.Client(), httpclient.Config{})
	s := NewResendSender(srv.URL+"/", "re_test", "orders@beastybaker.com", client, testLogger())

	err := s.Send(context.Background(), &Message{
		To:      []string{"jane@example.com"},
		Subject: "Order Confirmed - BB-260310-AB12",
		HTML:    "<p>thanks</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "orders@beastybaker.com", got.From)
	assert.Equal(t, []string{"jane@example.com"}, got.To)
	assert.Equal(t, "<p>thanks</p>", got.HTML)
}

func TestResendSender_RejectedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	client := httpclient.NewWithHTTPClient(srv.Client(), httpclient.Config{})
	s := NewResendSender(srv.URL, "re_test", "orders@beastybaker.com", client, testLogger())

	err := s.Send(context.Background(), &Message{To: []string{"bad"}, Subject: "x", HTML: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
