package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const (
	userKeyPrefix    = "cart:user:"
	sessionKeyPrefix = "cart:session:"
)

// CartRepository implements repository.CartRepository using Redis. User
// carts never expire; guest carts expire after the configured TTL, which
// is refreshed on every write.
type CartRepository struct {
	client   *redis.Client
	guestTTL time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, guestTTL time.Duration) *CartRepository {
	return &CartRepository{
		client:   client,
		guestTTL: guestTTL,
	}
}

// GetByUser returns the cart of a user, or nil when none exists.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return r.get(ctx, userKeyPrefix+userID)
}

// GetBySession returns a guest cart, or nil when none exists.
func (r *CartRepository) GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.get(ctx, sessionKeyPrefix+sessionID)
}

func (r *CartRepository) get(ctx context.Context, key string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// Save writes the cart when the stored version still matches cart.Version
// and increments it. A cart that expired in the meantime is recreated.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	key, ttl := r.keyFor(cart)

	txf := func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get cart: %w", err)
		default:
			var current struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(stored, &current); err != nil {
				return fmt.Errorf("unmarshal cart: %w", err)
			}
			if current.Version != cart.Version {
				return apperrors.Conflict("Cart was modified concurrently, please retry")
			}
		}

		next := *cart
		next.Version++
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperrors.Conflict("Cart was modified concurrently, please retry")
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("redis save cart: %w", err)
	}

	cart.Version++
	return nil
}

// Delete removes the cart.
func (r *CartRepository) Delete(ctx context.Context, cart *domain.Cart) error {
	key, _ := r.keyFor(cart)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

func (r *CartRepository) keyFor(cart *domain.Cart) (string, time.Duration) {
	if cart.UserID != "" {
		return userKeyPrefix + cart.UserID, 0
	}
	return sessionKeyPrefix + cart.SessionID, r.guestTTL
}
