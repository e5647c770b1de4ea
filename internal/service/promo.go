package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// PromoService validates promo codes and manages them for the back office.
type PromoService struct {
	repo   repository.PromoCodeRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewPromoService creates a new promo code service.
func NewPromoService(repo repository.PromoCodeRepository, logger *slog.Logger) *PromoService {
	return &PromoService{repo: repo, logger: logger, now: time.Now}
}

// PromoCodeInput holds promo code fields; nil fields are left unchanged on
// update. Zero limits and zero times clear the optional fields.
type PromoCodeInput struct {
	Code              *string
	Description       *string
	DiscountType      *string
	DiscountValue     *int64
	MinimumOrderValue *int64
	MaximumDiscount   *int64
	UsageLimit        *int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	IsActive          *bool
}

// Validate checks code against an order total. Unknown codes are a failed
// validation, not an error.
func (s *PromoService) Validate(ctx context.Context, code string, orderTotal int64) (*domain.PromoValidation, error) {
	promo, err := s.repo.GetByCode(ctx, domain.NormalizePromoCode(code))
	if errors.Is(err, apperrors.ErrNotFound) {
		return &domain.PromoValidation{Error: "Invalid promo code"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load promo code: %w", err)
	}
	result := promo.Validate(orderTotal, s.now())
	return &result, nil
}

// List returns promo codes newest first.
func (s *PromoService) List(ctx context.Context, filter repository.PromoCodeFilter) ([]domain.PromoCode, int, error) {
	promos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list promo codes: %w", err)
	}
	return promos, total, nil
}

// Get returns a promo code by id.
func (s *PromoService) Get(ctx context.Context, id string) (*domain.PromoCode, error) {
	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Promo code")
	}
	return promo, nil
}

// Create adds a promo code. Codes are stored upper-cased.
func (s *PromoService) Create(ctx context.Context, input *PromoCodeInput) (*domain.PromoCode, error) {
	if input.Code == nil {
		return nil, apperrors.InvalidInput("Promo code is required")
	}
	if input.DiscountType == nil {
		return nil, apperrors.InvalidInput("Discount type is required")
	}
	if input.DiscountValue == nil {
		return nil, apperrors.InvalidInput("Discount value is required")
	}

	now := s.now().UTC()
	promo := &domain.PromoCode{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.apply(promo)
	if err := validatePromo(promo); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, fmt.Errorf("create promo code: %w", err)
	}

	s.logger.InfoContext(ctx, "promo code created",
		slog.String("promo_id", promo.ID),
		slog.String("code", promo.Code),
	)
	return promo, nil
}

// Update changes a promo code.
func (s *PromoService) Update(ctx context.Context, id string, input *PromoCodeInput) (*domain.PromoCode, error) {
	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Promo code")
	}

	input.apply(promo)
	if err := validatePromo(promo); err != nil {
		return nil, err
	}
	promo.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, notFound(fmt.Errorf("update promo code: %w", err), "Promo code")
	}

	s.logger.InfoContext(ctx, "promo code updated", slog.String("promo_id", id))
	return promo, nil
}

// Delete removes a promo code. Orders keep the code text they used.
func (s *PromoService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(fmt.Errorf("delete promo code: %w", err), "Promo code")
	}
	s.logger.InfoContext(ctx, "promo code deleted", slog.String("promo_id", id))
	return nil
}

func validatePromo(p *domain.PromoCode) error {
	switch {
	case len(p.Code) < 3 || len(p.Code) > 50:
		return apperrors.InvalidInput("Promo code must be between 3 and 50 characters")
	case !domain.IsValidDiscountType(p.DiscountType):
		return apperrors.InvalidInput("Discount type must be percentage or fixed_amount")
	case p.DiscountValue <= 0:
		return apperrors.InvalidInput("Discount value must be greater than zero")
	case p.DiscountType == domain.DiscountPercentage && p.DiscountValue > 10000:
		return apperrors.InvalidInput("Percentage discount cannot exceed 100%")
	case p.ValidFrom != nil && p.ValidUntil != nil && p.ValidUntil.Before(*p.ValidFrom):
		return apperrors.InvalidInput("Valid until must be after valid from")
	}
	return nil
}

func (in *PromoCodeInput) apply(p *domain.PromoCode) {
	if in.Code != nil {
		p.Code = domain.NormalizePromoCode(*in.Code)
	}
	setField(&p.Description, in.Description)
	setField(&p.DiscountType, in.DiscountType)
	setField(&p.DiscountValue, in.DiscountValue)
	if in.MinimumOrderValue != nil {
		p.MinimumOrderValue = positive(*in.MinimumOrderValue)
	}
	if in.MaximumDiscount != nil {
		p.MaximumDiscount = positive(*in.MaximumDiscount)
	}
	if in.UsageLimit != nil {
		p.UsageLimit = positive(*in.UsageLimit)
	}
	if in.ValidFrom != nil {
		p.ValidFrom = nonZeroTime(*in.ValidFrom)
	}
	if in.ValidUntil != nil {
		p.ValidUntil = nonZeroTime(*in.ValidUntil)
	}
	setField(&p.IsActive, in.IsActive)
}

func positive[T int | int64](v T) *T {
	if v <= 0 {
		return nil
	}
	return &v
}
