package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	pkgkafka "github.com/FeliksML/web-cellar-sub000/pkg/kafka"
	"github.com/FeliksML/web-cellar-sub000/pkg/logger"
)

// --- Mocks ---

type fakePublisher struct {
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockNotifier) SendOrderStatusUpdate(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockNotifier) SendNewOrderAlert(ctx context.Context, to string, order *domain.Order) error {
	return m.Called(ctx, to, order).Error(0)
}

func (m *mockNotifier) SendLowStockAlert(ctx context.Context, to string, products []domain.LowStockProduct) error {
	return m.Called(ctx, to, products).Error(0)
}

type stubSettings struct {
	settings *domain.BusinessSettings
	err      error
}

func (s stubSettings) Get(context.Context) (*domain.BusinessSettings, error) {
	return s.settings, s.err
}

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) IndexProduct(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockIndexer) DeleteProduct(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	return &pkgkafka.Event{
		EventID:   "evt-test-123",
		EventType: eventType,
		Version:   1,
		Timestamp: time.Now().UTC(),
		Source:    "test",
		Data:      payload,
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           "order-001",
		OrderNumber:  "BB-260310-AB12",
		Status:       domain.OrderStatusPending,
		ContactEmail: "jane@example.com",
		Total:        2500,
	}
}

func settingsWith(fn func(s *domain.BusinessSettings)) stubSettings {
	s := domain.DefaultSettings()
	fn(&s)
	return stubSettings{settings: &s}
}

// --- Producer Tests ---

func TestTopics(t *testing.T) {
	assert.Equal(t, "bakery.order.created", TopicOrderCreated)
	assert.Equal(t, "bakery.order.status_changed", TopicOrderStatusChanged)
	assert.Equal(t, "bakery.inventory.low_stock", TopicInventoryLowStock)
}

func TestProducer_PublishOrderCreated(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, newTestLogger())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithUserID(ctx, "user-7")

	require.NoError(t, p.PublishOrderCreated(ctx, testOrder()))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicOrderCreated, pub.topics[0])
	ev := pub.events[0]
	assert.Equal(t, TopicOrderCreated, ev.EventType)
	assert.Equal(t, "order-001", ev.AggregateID)
	assert.Equal(t, AggregateTypeOrder, ev.AggregateType)
	assert.Equal(t, SourceStorefront, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "user-7", ev.Metadata["user_id"])

	var data OrderCreatedData
	require.NoError(t, ev.UnmarshalData(&data))
	assert.Equal(t, "BB-260310-AB12", data.Order.OrderNumber)
}

func TestProducer_PublishOrderStatusChanged(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, newTestLogger())
	o := testOrder()
	o.Status = domain.OrderStatusConfirmed

	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), o, domain.OrderStatusPending))

	var data OrderStatusChangedData
	require.NoError(t, pub.events[0].UnmarshalData(&data))
	assert.Equal(t, domain.OrderStatusPending, data.OldStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, data.NewStatus)
}

func TestProducer_PublishLowStock_EmptyIsNoop(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, newTestLogger())

	require.NoError(t, p.PublishLowStock(context.Background(), nil))
	assert.Empty(t, pub.events)
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducer(&fakePublisher{err: errors.New("broker down")}, newTestLogger())

	err := p.PublishProductDeleted(context.Background(), "prod-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish bakery.product.deleted event")
}

func TestProducer_NilIsSafe(t *testing.T) {
	var p *Producer
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishOrderCreated(context.Background(), testOrder()))

	disabled := NewProducer(nil, newTestLogger())
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.PublishOrderPaid(context.Background(), testOrder()))
}

// --- NotificationHandler Tests ---

func TestNotificationHandler_OrderCreated(t *testing.T) {
	notifier := new(mockNotifier)
	settings := settingsWith(func(s *domain.BusinessSettings) { s.OrderNotificationEmail = "owner@example.com" })
	h := NewNotificationHandler(notifier, settings, newTestLogger())
	ctx := context.Background()

	notifier.On("SendOrderConfirmation", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.OrderNumber == "BB-260310-AB12"
	})).Return(nil)
	notifier.On("SendNewOrderAlert", ctx, "owner@example.com", mock.Anything).Return(nil)

	err := h.Handle(ctx, newTestEvent(t, TopicOrderCreated, OrderCreatedData{Order: testOrder()}))

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestNotificationHandler_OrderCreated_AlertDisabled(t *testing.T) {
	notifier := new(mockNotifier)
	settings := settingsWith(func(s *domain.BusinessSettings) { s.NotifyOnNewOrder = false })
	h := NewNotificationHandler(notifier, settings, newTestLogger())
	ctx := context.Background()

	notifier.On("SendOrderConfirmation", ctx, mock.Anything).Return(nil)

	require.NoError(t, h.Handle(ctx, newTestEvent(t, TopicOrderCreated, OrderCreatedData{Order: testOrder()})))
	notifier.AssertNotCalled(t, "SendNewOrderAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationHandler_OrderCreated_AlertFailureIsSwallowed(t *testing.T) {
	notifier := new(mockNotifier)
	h := NewNotificationHandler(notifier, stubSettings{err: errors.New("db down")}, newTestLogger())
	ctx := context.Background()

	notifier.On("SendOrderConfirmation", ctx, mock.Anything).Return(nil)
	notifier.On("SendNewOrderAlert", ctx, "hello@beastybaker.com", mock.Anything).Return(errors.New("smtp down"))

	require.NoError(t, h.Handle(ctx, newTestEvent(t, TopicOrderCreated, OrderCreatedData{Order: testOrder()})))
	notifier.AssertExpectations(t)
}

func TestNotificationHandler_OrderCreated_ConfirmationError(t *testing.T) {
	notifier := new(mockNotifier)
	h := NewNotificationHandler(notifier, settingsWith(func(*domain.BusinessSettings) {}), newTestLogger())
	ctx := context.Background()

	notifier.On("SendOrderConfirmation", ctx, mock.Anything).Return(errors.New("smtp down"))

	err := h.Handle(ctx, newTestEvent(t, TopicOrderCreated, OrderCreatedData{Order: testOrder()}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send order confirmation")
}

func TestNotificationHandler_OrderCreated_MissingOrder(t *testing.T) {
	h := NewNotificationHandler(new(mockNotifier), stubSettings{}, newTestLogger())

	err := h.Handle(context.Background(), newTestEvent(t, TopicOrderCreated, map[string]string{}))
	assert.Error(t, err)
}

func TestNotificationHandler_OrderCreated_InvalidPayload(t *testing.T) {
	h := NewNotificationHandler(new(mockNotifier), stubSettings{}, newTestLogger())
	ev := &pkgkafka.Event{EventID: "evt-1", EventType: TopicOrderCreated, Data: json.RawMessage(`{not json`)}

	err := h.Handle(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal order.created data")
}

func TestNotificationHandler_StatusChanged(t *testing.T) {
	notifier := new(mockNotifier)
	h := NewNotificationHandler(notifier, stubSettings{}, newTestLogger())
	ctx := context.Background()

	notifier.On("SendOrderStatusUpdate", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.OrderStatusReady
	})).Return(nil)

	data := OrderStatusChangedData{
		OrderID:     "order-001",
		OrderNumber: "BB-260310-AB12",
		OldStatus:   domain.OrderStatusPreparing,
		NewStatus:   domain.OrderStatusReady,
		Order:       testOrder(),
	}
	require.NoError(t, h.Handle(ctx, newTestEvent(t, TopicOrderStatusChanged, data)))
	notifier.AssertExpectations(t)
}

func TestNotificationHandler_LowStock(t *testing.T) {
	notifier := new(mockNotifier)
	settings := settingsWith(func(s *domain.BusinessSettings) { s.LowStockNotificationEmail = "ops@example.com" })
	h := NewNotificationHandler(notifier, settings, newTestLogger())
	ctx := context.Background()
	products := []domain.LowStockProduct{{ID: "prod-001", Name: "Protein Brownie", StockQuantity: 2, LowStockThreshold: 5}}

	notifier.On("SendLowStockAlert", ctx, "ops@example.com", products).Return(nil)

	require.NoError(t, h.Handle(ctx, newTestEvent(t, TopicInventoryLowStock, LowStockData{Products: products})))
	notifier.AssertExpectations(t)
}

func TestNotificationHandler_LowStock_Disabled(t *testing.T) {
	notifier := new(mockNotifier)
	settings := settingsWith(func(s *domain.BusinessSettings) { s.NotifyOnLowStock = false })
	h := NewNotificationHandler(notifier, settings, newTestLogger())

	require.NoError(t, h.Handle(context.Background(), newTestEvent(t, TopicInventoryLowStock, LowStockData{})))
	notifier.AssertNotCalled(t, "SendLowStockAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationHandler_UnknownEvent(t *testing.T) {
	h := NewNotificationHandler(new(mockNotifier), stubSettings{}, newTestLogger())

	assert.NoError(t, h.Handle(context.Background(), newTestEvent(t, "bakery.unknown.thing", nil)))
}

// --- IndexerHandler Tests ---

func TestIndexerHandler_IndexesActiveProduct(t *testing.T) {
	indexer := new(mockIndexer)
	h := NewIndexerHandler(indexer, newTestLogger())
	ctx := context.Background()
	p := &domain.Product{ID: "prod-001", Name: "Protein Brownie", IsActive: true}

	indexer.On("IndexProduct", ctx, mock.MatchedBy(func(got *domain.Product) bool {
		return got.ID == "prod-001"
	})).Return(nil)

	require.NoError(t, h.Handle(ctx, newTestEvent(t, TopicProductUpdated, ProductEventData{Product: p})))
	indexer.AssertExpectations(t)
}

func TestIndexerHandler_RemovesInactiveProduct(t *testing.T) {
	indexer := new(mockIndexer)
	h := NewIndexerHandler(indexer, newTestLogger())
	ctx := context.Background()

	indexer.On("DeleteProduct", ctx, "prod-001").Return(nil)

	p := &domain.Product{ID: "prod-001", IsActive: false}
	require.NoError(t, h.Handle(ctx, newTestEvent(t, TopicProductUpdated, ProductEventData{Product: p})))
	indexer.AssertExpectations(t)
	indexer.AssertNotCalled(t, "IndexProduct", mock.Anything, mock.Anything)
}

func TestIndexerHandler_Deleted(t *testing.T) {
	indexer := new(mockIndexer)
	h := NewIndexerHandler(indexer, newTestLogger())
	ctx := context.Background()

	indexer.On("DeleteProduct", ctx, "prod-009").Return(errors.New("es down"))

	err := h.Handle(ctx, newTestEvent(t, TopicProductDeleted, ProductDeletedData{ID: "prod-009"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete product from index")
}

// --- NewConsumers Tests ---

func TestNewConsumers_OnePerTopic(t *testing.T) {
	h := NewNotificationHandler(new(mockNotifier), stubSettings{}, newTestLogger())

	consumers := NewConsumers(ConsumerOptions{
		Brokers: []string{"localhost:9092"},
		GroupID: NotificationGroupID,
		Store:   pkgkafka.NewMemoryIdempotencyStore(time.Hour),
	}, h.Topics(), h.Handle, newTestLogger())

	require.Len(t, consumers, 3)
	got := make([]string, len(consumers))
	for i, c := range consumers {
		got[i] = c.Topic()
		assert.NoError(t, c.Close())
	}
	assert.Equal(t, []string{TopicOrderCreated, TopicOrderStatusChanged, TopicInventoryLowStock}, got)
}
