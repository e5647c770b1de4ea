package event

import (
	"context"
	"log/slog"
	"sync"

	pkgkafka "github.com/FeliksML/web-cellar-sub000/pkg/kafka"
)

// LocalBus delivers events to in-process handlers. It stands in for Kafka
// when no brokers are configured so notifications and search indexing
// still happen. Handlers run in the background, detached from the
// request's cancellation.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]pkgkafka.Handler
	wg       sync.WaitGroup
	closed   bool
	logger   *slog.Logger
}

var _ Publisher = (*LocalBus)(nil)

// NewLocalBus creates an empty bus.
func NewLocalBus(logger *slog.Logger) *LocalBus {
	return &LocalBus{
		handlers: make(map[string][]pkgkafka.Handler),
		logger:   logger,
	}
}

// Subscribe registers handler for every topic in topics.
func (b *LocalBus) Subscribe(topics []string, handler pkgkafka.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.handlers[topic] = append(b.handlers[topic], handler)
	}
}

// Publish hands the event to each subscriber of topic. Handler errors are
// logged, never returned.
func (b *LocalBus) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	for _, h := range b.handlers[topic] {
		b.wg.Add(1)
		go func(h pkgkafka.Handler) {
			defer b.wg.Done()
			if err := h(detached, event); err != nil {
				b.logger.ErrorContext(detached, "local event handler failed",
					slog.String("topic", topic),
					slog.String("event_id", event.EventID),
					slog.String("error", err.Error()),
				)
			}
		}(h)
	}
	return nil
}

// Wait blocks until every handler started so far has returned.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and waits for running handlers.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
