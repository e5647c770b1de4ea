package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/event"
	"github.com/FeliksML/web-cellar-sub000/internal/payment"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// ProcessedEvents remembers which provider webhooks were already handled.
type ProcessedEvents interface {
	Contains(ctx context.Context, eventID string) (bool, error)
	Add(ctx context.Context, eventID string) error
}

// PaymentIntentResult is returned to the browser to complete payment.
type PaymentIntentResult struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// PaymentService connects orders to the payment provider.
type PaymentService struct {
	orders    repository.OrderRepository
	provider  payment.Provider
	processed ProcessedEvents
	producer  *event.Producer
	logger    *slog.Logger
	now       func() time.Time
}

// NewPaymentService creates a new payment service. processed may be nil,
// in which case redelivered webhooks are applied again; every handler is
// safe to repeat.
func NewPaymentService(
	orders repository.OrderRepository,
	provider payment.Provider,
	processed ProcessedEvents,
	producer *event.Producer,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		orders:    orders,
		provider:  provider,
		processed: processed,
		producer:  producer,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateIntent opens a payment intent for the order total and stores its id
// on the order.
func (s *PaymentService) CreateIntent(ctx context.Context, userID, orderNumber string) (*PaymentIntentResult, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "Order")
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, apperrors.NotFound("Order")
	}
	switch {
	case order.PaymentStatus == domain.PaymentStatusPaid:
		return nil, apperrors.InvalidInput("Order is already paid")
	case order.Status == domain.OrderStatusCancelled:
		return nil, apperrors.InvalidInput("Order has been cancelled")
	case order.Total <= 0:
		return nil, apperrors.InvalidInput("Order total must be greater than zero")
	}

	from := order.State()
	intent, err := s.provider.CreateIntent(ctx, &payment.IntentInput{
		Amount:      order.Total,
		Description: "Order " + order.OrderNumber,
		Metadata: map[string]string{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		},
		IdempotencyKey: "order-" + order.OrderNumber + "-" + fmt.Sprint(order.Total),
	})
	if err != nil {
		return nil, err
	}

	order.PaymentIntentID = intent.ID
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.UpdatePayment(ctx, order, from); err != nil {
		return nil, notFound(fmt.Errorf("store payment intent: %w", err), "Order")
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("order_number", order.OrderNumber),
		slog.String("provider", s.provider.Name()),
	)
	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	}, nil
}

// HandleWebhook verifies and applies a provider notification. Unknown
// event types and intents without an order are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return apperrors.InvalidInput("Invalid webhook signature")
		}
		return apperrors.InvalidInput("Invalid webhook payload")
	}

	if ev.Type != payment.EventIntentSucceeded && ev.Type != payment.EventIntentFailed {
		s.logger.DebugContext(ctx, "ignoring webhook event", slog.String("type", ev.Type))
		return nil
	}
	if s.seen(ctx, ev.ID) {
		s.logger.InfoContext(ctx, "skipping duplicate webhook", slog.String("event_id", ev.ID))
		return nil
	}

	order, err := s.orders.GetByPaymentIntent(ctx, ev.IntentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "webhook for unknown payment intent", slog.String("intent_id", ev.IntentID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order for payment intent: %w", err)
	}

	switch ev.Type {
	case payment.EventIntentSucceeded:
		err = s.markPaid(ctx, order)
	case payment.EventIntentFailed:
		err = s.markFailed(ctx, order, ev.FailureMessage)
	}
	if err != nil {
		return err
	}

	if s.processed != nil && ev.ID != "" {
		if err := s.processed.Add(ctx, webhookKey(ev.ID)); err != nil {
			s.logger.WarnContext(ctx, "failed to record processed webhook", errAttr(err))
		}
	}
	return nil
}

func (s *PaymentService) seen(ctx context.Context, eventID string) bool {
	if s.processed == nil || eventID == "" {
		return false
	}
	ok, err := s.processed.Contains(ctx, webhookKey(eventID))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to check processed webhook", errAttr(err))
		return false
	}
	return ok
}

func webhookKey(eventID string) string {
	return "payment:" + eventID
}

// markPaid records a successful payment. Pending orders are confirmed at
// the same time.
func (s *PaymentService) markPaid(ctx context.Context, order *domain.Order) error {
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil
	}

	from := order.State()
	now := s.now().UTC()
	order.PaymentStatus = domain.PaymentStatusPaid
	order.UpdatedAt = now
	oldStatus := order.Status
	confirmed := order.Status == domain.OrderStatusPending && order.TransitionTo(domain.OrderStatusConfirmed, "", now)

	if err := s.orders.UpdatePayment(ctx, order, from); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	s.logger.InfoContext(ctx, "order paid",
		slog.String("order_number", order.OrderNumber),
		slog.Bool("auto_confirmed", confirmed),
	)
	if err := s.producer.PublishOrderPaid(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order paid event", errAttr(err))
	}
	if confirmed {
		if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order status event", errAttr(err))
		}
	}
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, order *domain.Order, reason string) error {
	if order.PaymentStatus == domain.PaymentStatusPaid || order.PaymentStatus == domain.PaymentStatusRefunded {
		return nil
	}
	from := order.State()
	order.PaymentStatus = domain.PaymentStatusFailed
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.UpdatePayment(ctx, order, from); err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	s.logger.WarnContext(ctx, "payment failed",
		slog.String("order_number", order.OrderNumber),
		slog.String("reason", reason),
	)
	return nil
}

// ConfirmPayment marks an order paid by hand, for payments taken outside
// the provider.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderNumber, intentID string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "Order")
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, apperrors.InvalidInput("Order has been cancelled")
	}
	if intentID != "" {
		order.PaymentIntentID = intentID
	}
	if err := s.markPaid(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Refund returns the full payment of an order through the provider.
func (s *PaymentService) Refund(ctx context.Context, orderNumber string) (*payment.RefundResult, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFound(err, "Order")
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		return nil, apperrors.InvalidInput("Only paid orders can be refunded")
	}
	if order.PaymentIntentID == "" {
		return nil, apperrors.InvalidInput("Order has no payment to refund")
	}

	refund, err := s.provider.Refund(ctx, &payment.RefundInput{IntentID: order.PaymentIntentID})
	if err != nil {
		return nil, err
	}

	from := order.State()
	order.PaymentStatus = domain.PaymentStatusRefunded
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.UpdatePayment(ctx, order, from); err != nil {
		return nil, fmt.Errorf("mark order refunded: %w", err)
	}

	s.logger.InfoContext(ctx, "order refunded",
		slog.String("order_number", order.OrderNumber),
		slog.String("refund_id", refund.ID),
		slog.Int64("amount", refund.Amount),
	)
	return refund, nil
}
