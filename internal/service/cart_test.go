package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/delivery"
	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

var cartNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type cartFixture struct {
	svc      *CartService
	carts    *mockCartRepo
	products *mockProductRepo
	promos   *mockPromoRepo
}

func newTestCartService() *cartFixture {
	f := &cartFixture{
		carts:    new(mockCartRepo),
		products: new(mockProductRepo),
		promos:   new(mockPromoRepo),
	}
	scheduler := delivery.NewScheduler(12, time.UTC).WithClock(fixedClock(cartNow))
	f.svc = NewCartService(f.carts, f.products, f.promos, scheduler, newTestLogger())
	f.svc.now = fixedClock(cartNow)
	return f
}

func brownie() *domain.Product {
	p := domain.NewProduct()
	p.ID = "prod-1"
	p.Name = "Protein Brownie"
	p.Slug = "protein-brownie"
	p.SKU = "BRW-001"
	p.Price = 450
	p.StockQuantity = 5
	return p
}

func TestCartGet_RequiresOwner(t *testing.T) {
	f := newTestCartService()

	_, err := f.svc.Get(context.Background(), CartOwner{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCartGet_MissingCartIsEmpty(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	f.carts.On("GetBySession", ctx, "sess-1").Return(nil, nil)

	view, err := f.svc.Get(ctx, CartOwner{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.True(t, view.IsEmpty)
	assert.Equal(t, "sess-1", view.SessionID)
	assert.Zero(t, view.Total)
}

func TestCartAddItem_Success(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "prod-1").Return(brownie(), nil)
	f.carts.On("GetBySession", ctx, "sess-1").Return(nil, nil)
	f.carts.On("Save", ctx, mock.MatchedBy(func(c *domain.Cart) bool {
		return len(c.Items) == 1 && c.Items[0].UnitPrice == 450 && c.Items[0].Quantity == 2
	})).Return(nil)

	view, err := f.svc.AddItem(ctx, CartOwner{SessionID: "sess-1"}, &AddItemInput{ProductID: "prod-1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, int64(900), view.Subtotal)
	assert.Equal(t, int64(900), view.Total)
	assert.Equal(t, "BRW-001", view.Items[0].ProductSKU)
	f.carts.AssertExpectations(t)
}

func TestCartAddItem_ProductNotFound(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.AddItem(ctx, CartOwner{SessionID: "sess-1"}, &AddItemInput{ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartAddItem_OutOfStock(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()
	p := brownie()
	p.StockQuantity = 0

	f.products.On("GetByID", ctx, "prod-1").Return(p, nil)

	_, err := f.svc.AddItem(ctx, CartOwner{SessionID: "sess-1"}, &AddItemInput{ProductID: "prod-1", Quantity: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of stock")
	f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartAddItem_MergedLineExceedsStock(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	existing := domain.NewCart("user-1", "", cartNow)
	existing.AddItem(domain.CartItem{ProductID: "prod-1", ProductName: "Protein Brownie", Quantity: 4, UnitPrice: 450}, cartNow)

	f.products.On("GetByID", ctx, "prod-1").Return(brownie(), nil)
	f.carts.On("GetByUser", ctx, "user-1").Return(existing, nil)

	_, err := f.svc.AddItem(ctx, CartOwner{UserID: "user-1"}, &AddItemInput{ProductID: "prod-1", Quantity: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only 5 of Protein Brownie in stock")
	f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartAddItem_MinimumQuantity(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()
	p := brownie()
	p.MinimumQuantity = 6
	p.StockQuantity = 20

	f.products.On("GetByID", ctx, "prod-1").Return(p, nil)

	_, err := f.svc.AddItem(ctx, CartOwner{SessionID: "sess-1"}, &AddItemInput{ProductID: "prod-1", Quantity: 2})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCartAddItem_RetriesOnConflict(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "prod-1").Return(brownie(), nil)
	f.carts.On("GetBySession", ctx, "sess-1").Return(nil, nil)
	f.carts.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(apperrors.Conflict("Cart was modified")).Once()
	f.carts.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil).Once()

	view, err := f.svc.AddItem(ctx, CartOwner{SessionID: "sess-1"}, &AddItemInput{ProductID: "prod-1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, view.ItemCount)
	f.carts.AssertNumberOfCalls(t, "GetBySession", 2)
	f.carts.AssertNumberOfCalls(t, "Save", 2)
}

func TestCartAddItem_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "prod-1").Return(brownie(), nil)
	f.carts.On("GetBySession", ctx, "sess-1").Return(nil, nil)
	f.carts.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(apperrors.Conflict("Cart was modified"))

	_, err := f.svc.AddItem(ctx, CartOwner{SessionID: "sess-1"}, &AddItemInput{ProductID: "prod-1", Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.carts.AssertNumberOfCalls(t, "Save", cartRetries)
}

func TestCartUpdateItem(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	cart := domain.NewCart("user-1", "", cartNow)
	line := cart.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 1, UnitPrice: 450}, cartNow)
	lineID := line.ID

	f.carts.On("GetByUser", ctx, "user-1").Return(cart, nil)
	f.products.On("GetByID", ctx, "prod-1").Return(brownie(), nil)
	f.carts.On("Save", ctx, cart).Return(nil)

	view, err := f.svc.UpdateItem(ctx, CartOwner{UserID: "user-1"}, lineID, &UpdateItemInput{
		Quantity:            intPtr(3),
		SpecialInstructions: strPtr("  no nuts "),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, "no nuts", view.Items[0].SpecialInstructions)
}

func TestCartUpdateItem_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown line", func(t *testing.T) {
		f := newTestCartService()
		f.carts.On("GetByUser", ctx, "user-1").Return(domain.NewCart("user-1", "", cartNow), nil)

		_, err := f.svc.UpdateItem(ctx, CartOwner{UserID: "user-1"}, "nope", &UpdateItemInput{Quantity: intPtr(1)})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("zero quantity", func(t *testing.T) {
		f := newTestCartService()
		cart := domain.NewCart("user-1", "", cartNow)
		line := cart.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 1}, cartNow)
		f.carts.On("GetByUser", ctx, "user-1").Return(cart, nil)

		_, err := f.svc.UpdateItem(ctx, CartOwner{UserID: "user-1"}, line.ID, &UpdateItemInput{Quantity: intPtr(0)})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("deleted product only needs a positive quantity", func(t *testing.T) {
		f := newTestCartService()
		cart := domain.NewCart("user-1", "", cartNow)
		line := cart.AddItem(domain.CartItem{ProductID: "gone", Quantity: 1}, cartNow)
		f.carts.On("GetByUser", ctx, "user-1").Return(cart, nil)
		f.products.On("GetByID", ctx, "gone").Return(nil, apperrors.ErrNotFound)
		f.carts.On("Save", ctx, cart).Return(nil)

		view, err := f.svc.UpdateItem(ctx, CartOwner{UserID: "user-1"}, line.ID, &UpdateItemInput{Quantity: intPtr(7)})
		require.NoError(t, err)
		assert.Equal(t, 7, view.ItemCount)
	})
}

func TestCartRemoveItem_NotFound(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	f.carts.On("GetBySession", ctx, "sess-1").Return(domain.NewCart("", "sess-1", cartNow), nil)

	err := f.svc.RemoveItem(ctx, CartOwner{SessionID: "sess-1"}, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartClear(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	cart := domain.NewCart("", "sess-1", cartNow)
	cart.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 2}, cartNow)
	cart.PromoCode = "SAVE10"

	f.carts.On("GetBySession", ctx, "sess-1").Return(cart, nil)
	f.carts.On("Save", ctx, mock.MatchedBy(func(c *domain.Cart) bool {
		return c.IsEmpty() && c.PromoCode == ""
	})).Return(nil)

	require.NoError(t, f.svc.Clear(ctx, CartOwner{SessionID: "sess-1"}))
	f.carts.AssertExpectations(t)
}

func TestCartUpdateDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("stores date and slot", func(t *testing.T) {
		f := newTestCartService()
		f.carts.On("GetByUser", ctx, "user-1").Return(nil, nil)
		f.carts.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

		date := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
		view, err := f.svc.UpdateDelivery(ctx, CartOwner{UserID: "user-1"}, &DeliveryInput{
			RequestedDeliveryDate: &date,
			DeliveryTimeSlot:      strPtr("afternoon"),
		})
		require.NoError(t, err)
		require.NotNil(t, view.RequestedDeliveryDate)
		assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *view.RequestedDeliveryDate)
		assert.Equal(t, "afternoon", view.DeliveryTimeSlot)
	})

	t.Run("rejects past date", func(t *testing.T) {
		f := newTestCartService()
		_, err := f.svc.UpdateDelivery(ctx, CartOwner{UserID: "user-1"}, &DeliveryInput{
			RequestedDeliveryDate: timePtr(cartNow.AddDate(0, 0, -1)),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "past")
	})

	t.Run("rejects unknown slot", func(t *testing.T) {
		f := newTestCartService()
		_, err := f.svc.UpdateDelivery(ctx, CartOwner{UserID: "user-1"}, &DeliveryInput{
			DeliveryTimeSlot: strPtr("midnight"),
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestCartApplyPromo(t *testing.T) {
	ctx := context.Background()
	promo := &domain.PromoCode{
		Code:          "SAVE10",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 1000,
		IsActive:      true,
	}

	t.Run("applies valid code", func(t *testing.T) {
		f := newTestCartService()
		cart := domain.NewCart("user-1", "", cartNow)
		cart.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 2, UnitPrice: 1000}, cartNow)

		f.promos.On("GetByCode", ctx, "SAVE10").Return(promo, nil)
		f.carts.On("GetByUser", ctx, "user-1").Return(cart, nil)
		f.carts.On("Save", ctx, cart).Return(nil)

		view, err := f.svc.ApplyPromo(ctx, CartOwner{UserID: "user-1"}, " save10 ")
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", view.PromoCode)
		assert.Equal(t, int64(200), view.DiscountAmount)
		assert.Equal(t, int64(1800), view.Total)
		assert.Empty(t, view.PromoError)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := newTestCartService()
		f.promos.On("GetByCode", ctx, "NOPE").Return(nil, apperrors.ErrNotFound)

		_, err := f.svc.ApplyPromo(ctx, CartOwner{UserID: "user-1"}, "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid promo code")
	})

	t.Run("below minimum order", func(t *testing.T) {
		f := newTestCartService()
		minimum := *promo
		minimum.MinimumOrderValue = int64Ptr(5000)
		cart := domain.NewCart("user-1", "", cartNow)
		cart.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 1, UnitPrice: 1000}, cartNow)

		f.promos.On("GetByCode", ctx, "SAVE10").Return(&minimum, nil)
		f.carts.On("GetByUser", ctx, "user-1").Return(cart, nil)

		_, err := f.svc.ApplyPromo(ctx, CartOwner{UserID: "user-1"}, "SAVE10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Minimum order value")
		f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCartView_ReportsLapsedPromo(t *testing.T) {
	f := newTestCartService()
	ctx := context.Background()

	cart := domain.NewCart("user-1", "", cartNow)
	cart.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 1, UnitPrice: 1000}, cartNow)
	cart.PromoCode = "OLD"
	expired := cartNow.Add(-time.Hour)

	f.carts.On("GetByUser", ctx, "user-1").Return(cart, nil)
	f.promos.On("GetByCode", ctx, "OLD").Return(&domain.PromoCode{
		Code:          "OLD",
		DiscountType:  domain.DiscountFixedAmount,
		DiscountValue: 300,
		IsActive:      true,
		ValidUntil:    &expired,
	}, nil)

	view, err := f.svc.Get(ctx, CartOwner{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "OLD", view.PromoCode)
	assert.Equal(t, "Promo code has expired", view.PromoError)
	assert.Zero(t, view.DiscountAmount)
	assert.Equal(t, int64(1000), view.Total)
}

func TestCartMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("folds guest cart into user cart", func(t *testing.T) {
		f := newTestCartService()
		guest := domain.NewCart("", "sess-1", cartNow)
		guest.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 2, UnitPrice: 450}, cartNow)
		guest.AddItem(domain.CartItem{ProductID: "prod-2", Quantity: 1, UnitPrice: 300}, cartNow)

		user := domain.NewCart("user-1", "", cartNow)
		user.AddItem(domain.CartItem{ProductID: "prod-1", Quantity: 1, UnitPrice: 450}, cartNow)

		f.carts.On("GetBySession", ctx, "sess-1").Return(guest, nil)
		f.carts.On("GetByUser", ctx, "user-1").Return(user, nil)
		f.carts.On("Save", ctx, user).Return(nil)
		f.carts.On("Delete", ctx, guest).Return(nil)

		view, err := f.svc.Merge(ctx, "user-1", "sess-1")
		require.NoError(t, err)
		assert.Len(t, view.Items, 2)
		assert.Equal(t, 4, view.ItemCount)
		f.carts.AssertExpectations(t)
	})

	t.Run("empty guest cart returns user cart", func(t *testing.T) {
		f := newTestCartService()
		f.carts.On("GetBySession", ctx, "sess-1").Return(nil, nil)
		f.carts.On("GetByUser", ctx, "user-1").Return(nil, nil)

		view, err := f.svc.Merge(ctx, "user-1", "sess-1")
		require.NoError(t, err)
		assert.True(t, view.IsEmpty)
		f.carts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("requires user", func(t *testing.T) {
		f := newTestCartService()
		_, err := f.svc.Merge(ctx, "", "sess-1")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}
