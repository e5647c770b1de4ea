package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	pkgkafka "github.com/FeliksML/web-cellar-sub000/pkg/kafka"
)

// Consumer group IDs.
const (
	NotificationGroupID = "storefront-notifications"
	IndexerGroupID      = "storefront-search-indexer"
)

// Notifier sends the emails triggered by order and inventory events.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendOrderStatusUpdate(ctx context.Context, order *domain.Order) error
	SendNewOrderAlert(ctx context.Context, to string, order *domain.Order) error
	SendLowStockAlert(ctx context.Context, to string, products []domain.LowStockProduct) error
}

// SettingsReader loads the business settings that decide who gets alerts.
type SettingsReader interface {
	Get(ctx context.Context) (*domain.BusinessSettings, error)
}

// NotificationHandler turns order and inventory events into emails.
type NotificationHandler struct {
	notifier Notifier
	settings SettingsReader
	logger   *slog.Logger
}

// NewNotificationHandler creates a new notification event handler.
func NewNotificationHandler(notifier Notifier, settings SettingsReader, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		settings: settings,
		logger:   logger,
	}
}

// Topics returns the topics the handler understands.
func (h *NotificationHandler) Topics() []string {
	return []string{TopicOrderCreated, TopicOrderStatusChanged, TopicInventoryLowStock}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *NotificationHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderCreated:
		return h.handleOrderCreated(ctx, event)
	case TopicOrderStatusChanged:
		return h.handleOrderStatusChanged(ctx, event)
	case TopicInventoryLowStock:
		return h.handleLowStock(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *NotificationHandler) handleOrderCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal order.created data: %w", err)
	}
	if data.Order == nil {
		return fmt.Errorf("order.created event %s carries no order", event.EventID)
	}

	if err := h.notifier.SendOrderConfirmation(ctx, data.Order); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}

	// The customer email went out; a failed store alert must not cause a
	// redelivery that would email the customer twice.
	settings := h.loadSettings(ctx)
	if settings.NotifyOnNewOrder && settings.OrderNotificationEmail != "" {
		if err := h.notifier.SendNewOrderAlert(ctx, settings.OrderNotificationEmail, data.Order); err != nil {
			h.logger.ErrorContext(ctx, "failed to send new order alert",
				slog.String("order_number", data.Order.OrderNumber),
				slog.String("error", err.Error()),
			)
		}
	}

	h.logger.InfoContext(ctx, "order confirmation sent",
		slog.String("event_id", event.EventID),
		slog.String("order_number", data.Order.OrderNumber),
	)
	return nil
}

func (h *NotificationHandler) handleOrderStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderStatusChangedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal order.status_changed data: %w", err)
	}
	if data.Order == nil {
		return fmt.Errorf("order.status_changed event %s carries no order", event.EventID)
	}
	data.Order.Status = data.NewStatus

	if err := h.notifier.SendOrderStatusUpdate(ctx, data.Order); err != nil {
		return fmt.Errorf("send order status update: %w", err)
	}

	h.logger.InfoContext(ctx, "order status email sent",
		slog.String("event_id", event.EventID),
		slog.String("order_number", data.OrderNumber),
		slog.String("old_status", data.OldStatus),
		slog.String("new_status", data.NewStatus),
	)
	return nil
}

func (h *NotificationHandler) handleLowStock(ctx context.Context, event *pkgkafka.Event) error {
	var data LowStockData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal inventory.low_stock data: %w", err)
	}

	settings := h.loadSettings(ctx)
	if !settings.NotifyOnLowStock {
		return nil
	}
	to := settings.LowStockNotificationEmail
	if to == "" {
		to = settings.StoreEmail
	}
	if to == "" {
		h.logger.WarnContext(ctx, "low stock alert has no recipient", slog.String("event_id", event.EventID))
		return nil
	}

	if err := h.notifier.SendLowStockAlert(ctx, to, data.Products); err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	return nil
}

// loadSettings falls back to defaults when the settings cannot be read.
func (h *NotificationHandler) loadSettings(ctx context.Context) *domain.BusinessSettings {
	settings, err := h.settings.Get(ctx)
	if err != nil || settings == nil {
		if err != nil {
			h.logger.WarnContext(ctx, "failed to load settings, using defaults", slog.String("error", err.Error()))
		}
		def := domain.DefaultSettings()
		return &def
	}
	return settings
}

// ProductIndexer maintains the product search index.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// IndexerHandler keeps the search index in step with product events.
type IndexerHandler struct {
	indexer ProductIndexer
	logger  *slog.Logger
}

// NewIndexerHandler creates a new search indexing event handler.
func NewIndexerHandler(indexer ProductIndexer, logger *slog.Logger) *IndexerHandler {
	return &IndexerHandler{
		indexer: indexer,
		logger:  logger,
	}
}

// Topics returns the topics the handler understands.
func (h *IndexerHandler) Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// Handle processes a Kafka event based on its type.
func (h *IndexerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return h.handleProductUpsert(ctx, event)
	case TopicProductDeleted:
		return h.handleProductDeleted(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *IndexerHandler) handleProductUpsert(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if data.Product == nil {
		return fmt.Errorf("%s event %s carries no product", event.EventType, event.EventID)
	}

	// Deactivated products drop out of search.
	if !data.Product.IsActive {
		if err := h.indexer.DeleteProduct(ctx, data.Product.ID); err != nil {
			return fmt.Errorf("remove inactive product from index: %w", err)
		}
		return nil
	}

	if err := h.indexer.IndexProduct(ctx, data.Product); err != nil {
		return fmt.Errorf("index product: %w", err)
	}

	h.logger.DebugContext(ctx, "product indexed",
		slog.String("event_id", event.EventID),
		slog.String("product_id", data.Product.ID),
	)
	return nil
}

func (h *IndexerHandler) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	if err := h.indexer.DeleteProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from index: %w", err)
	}
	return nil
}

// ConsumerOptions configures the consumers built by NewConsumers.
type ConsumerOptions struct {
	Brokers []string
	GroupID string

	// Store deduplicates redelivered events; nil disables deduplication.
	Store pkgkafka.IdempotencyStore

	// DeadLetter receives events whose handler kept failing; may be nil.
	DeadLetter pkgkafka.DeadLetterPublisher
}

// NewConsumers creates one Kafka consumer per topic, all sharing handler.
func NewConsumers(opts ConsumerOptions, topics []string, handler pkgkafka.Handler, logger *slog.Logger) []*pkgkafka.Consumer {
	if opts.Store != nil {
		handler = pkgkafka.IdempotentHandler(opts.Store, handler, logger)
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  opts.Brokers,
			GroupID:  opts.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}

		consumer := pkgkafka.NewConsumer(cfg, handler, logger)
		if opts.DeadLetter != nil {
			consumer.WithDeadLetter(opts.DeadLetter)
		}
		consumers = append(consumers, consumer)
	}

	return consumers
}
