package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	pkgkafka "github.com/FeliksML/web-cellar-sub000/pkg/kafka"
	"github.com/FeliksML/web-cellar-sub000/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicOrderCancelled     = pkgkafka.Topic("order", "cancelled")
	TopicOrderPaid          = pkgkafka.Topic("order", "paid")
	TopicProductCreated     = pkgkafka.Topic("product", "created")
	TopicProductUpdated     = pkgkafka.Topic("product", "updated")
	TopicProductDeleted     = pkgkafka.Topic("product", "deleted")
	TopicReviewCreated      = pkgkafka.Topic("review", "created")
	TopicInventoryLowStock  = pkgkafka.Topic("inventory", "low_stock")
)

// Aggregate types.
const (
	AggregateTypeOrder     = "order"
	AggregateTypeProduct   = "product"
	AggregateTypeReview    = "review"
	AggregateTypeInventory = "inventory"
)

// SourceStorefront identifies events produced by this service.
const SourceStorefront = "storefront-api"

// OrderCreatedData is the payload for an order.created event (full order snapshot).
type OrderCreatedData struct {
	Order *domain.Order `json:"order"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	OldStatus   string        `json:"old_status"`
	NewStatus   string        `json:"new_status"`
	Order       *domain.Order `json:"order"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// OrderPaidData is the payload for an order.paid event.
type OrderPaidData struct {
	OrderID         string `json:"order_id"`
	OrderNumber     string `json:"order_number"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
}

// ProductEventData is the payload for product.created and product.updated.
type ProductEventData struct {
	Product *domain.Product `json:"product"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID   string `json:"review_id"`
	ProductID  string `json:"product_id"`
	UserID     string `json:"user_id"`
	Rating     int    `json:"rating"`
	IsApproved bool   `json:"is_approved"`
}

// LowStockData is the payload for an inventory.low_stock event.
type LowStockData struct {
	Products []domain.LowStockProduct `json:"products"`
}

// Publisher is the part of pkg/kafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events. A nil *Producer, or one
// built without a publisher, drops events so callers need no Kafka checks.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether the producer has somewhere to publish to.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if userID := logger.UserIDFromContext(ctx); userID != "" {
		event.WithMetadata("user_id", userID)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// PublishOrderCreated publishes an order.created event with the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, OrderCreatedData{Order: order})
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus string) error {
	return p.publish(ctx, TopicOrderStatusChanged, order.ID, AggregateTypeOrder, OrderStatusChangedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
		Order:       order,
	})
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderCancelled, order.ID, AggregateTypeOrder, OrderCancelledData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reason:      order.CancellationReason,
	})
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderPaid, order.ID, AggregateTypeOrder, OrderPaidData{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PaymentIntentID: order.PaymentIntentID,
		Amount:          order.Total,
	})
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, ProductEventData{Product: product})
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, AggregateTypeProduct, ProductEventData{Product: product})
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, productID string) error {
	return p.publish(ctx, TopicProductDeleted, productID, AggregateTypeProduct, ProductDeletedData{ID: productID})
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, review.ID, AggregateTypeReview, ReviewCreatedData{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		UserID:     review.UserID,
		Rating:     review.Rating,
		IsApproved: review.IsApproved,
	})
}

// PublishLowStock publishes an inventory.low_stock event. Nothing is sent
// for an empty list.
func (p *Producer) PublishLowStock(ctx context.Context, products []domain.LowStockProduct) error {
	if len(products) == 0 {
		return nil
	}
	return p.publish(ctx, TopicInventoryLowStock, products[0].ID, AggregateTypeInventory, LowStockData{Products: products})
}
