package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(eventID string) *Event {
	return &Event{EventID: eventID, EventType: "order.created", AggregateID: "BB-261016-AB12"}
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingStore) Add(context.Context, string) error { return errors.New("redis down") }

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Add(ctx, "evt-1"))
	require.NoError(t, store.Add(ctx, "evt-1"))
	assert.Equal(t, 1, store.Len())

	seen, _ = store.Contains(ctx, "evt-1")
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, _ = store.Contains(ctx, "evt-1")
	assert.False(t, seen, "entry should expire after ttl")
	assert.Equal(t, 0, store.Len())
}

func TestMemoryIdempotencyStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, "evt")
			_, _ = store.Contains(ctx, "evt")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len())
}

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate is skipped", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Minute), func(context.Context, *Event) error {
			calls++
			return nil
		}, testLogger())

		require.NoError(t, h(ctx, testEvent("evt-1")))
		require.NoError(t, h(ctx, testEvent("evt-1")))
		require.NoError(t, h(ctx, testEvent("evt-2")))
		assert.Equal(t, 2, calls)
	})

	t.Run("empty id always passes through", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Minute), func(context.Context, *Event) error {
			calls++
			return nil
		}, testLogger())

		for i := 0; i < 3; i++ {
			require.NoError(t, h(ctx, testEvent("")))
		}
		assert.Equal(t, 3, calls)
	})

	t.Run("failure is not recorded", func(t *testing.T) {
		store := NewMemoryIdempotencyStore(time.Minute)
		boom := errors.New("smtp timeout")
		h := IdempotentHandler(store, func(context.Context, *Event) error { return boom }, testLogger())

		assert.ErrorIs(t, h(ctx, testEvent("evt-err")), boom)
		seen, _ := store.Contains(ctx, "evt-err")
		assert.False(t, seen)
	})

	t.Run("store failure processes anyway", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error {
			calls++
			return nil
		}, testLogger())

		require.NoError(t, h(ctx, testEvent("evt-x")))
		assert.Equal(t, 1, calls)
	})
}
