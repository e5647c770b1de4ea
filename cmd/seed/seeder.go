package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/money"
)

// CategoryStore is the part of the category service the seeder uses.
type CategoryStore interface {
	GetBySlug(ctx context.Context, slug string, includeInactive bool) (*domain.Category, error)
	Create(ctx context.Context, input *service.CategoryInput) (*domain.Category, error)
}

// ProductCreator creates catalog products.
type ProductCreator interface {
	Create(ctx context.Context, input *service.ProductInput) (*domain.Product, error)
}

// ProductLookup finds products regardless of their active flag.
type ProductLookup interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

// Seeder loads the sample catalog, skipping rows whose slug exists.
type Seeder struct {
	categories CategoryStore
	products   ProductCreator
	lookup     ProductLookup
	logger     *slog.Logger
}

// SeedResult counts the rows created by a run.
type SeedResult struct {
	Categories int
	Products   int
}

func NewSeeder(categories CategoryStore, products ProductCreator, lookup ProductLookup, logger *slog.Logger) *Seeder {
	return &Seeder{categories: categories, products: products, lookup: lookup, logger: logger}
}

// Run seeds cats and then prods, linking products by category slug.
func (s *Seeder) Run(ctx context.Context, cats []categorySeed, prods []productSeed) (*SeedResult, error) {
	res := &SeedResult{}
	ids := make(map[string]string, len(cats))

	for _, c := range cats {
		existing, err := s.categories.GetBySlug(ctx, c.Slug, true)
		switch {
		case err == nil:
			ids[c.Slug] = existing.ID
			continue
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, fmt.Errorf("look up category %s: %w", c.Slug, err)
		}

		c := c
		active := true
		created, err := s.categories.Create(ctx, &service.CategoryInput{
			Name:         &c.Name,
			Slug:         &c.Slug,
			Description:  &c.Description,
			DisplayOrder: &c.DisplayOrder,
			IsActive:     &active,
		})
		if err != nil {
			return nil, fmt.Errorf("create category %s: %w", c.Slug, err)
		}
		ids[c.Slug] = created.ID
		res.Categories++
		s.logger.Info("seeded category", slog.String("slug", c.Slug))
	}

	for _, p := range prods {
		if _, err := s.lookup.GetBySlug(ctx, p.Slug); err == nil {
			continue
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("look up product %s: %w", p.Slug, err)
		}

		input, err := p.input(ids)
		if err != nil {
			return nil, err
		}
		if _, err := s.products.Create(ctx, input); err != nil {
			return nil, fmt.Errorf("create product %s: %w", p.Slug, err)
		}
		res.Products++
		s.logger.Info("seeded product", slog.String("slug", p.Slug))
	}

	return res, nil
}

func (p productSeed) input(categoryIDs map[string]string) (*service.ProductInput, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s price %q: %w", p.Slug, p.Price, err)
	}
	cents := money.FromDecimal(price)
	active := true

	input := &service.ProductInput{
		SKU:              &p.SKU,
		Name:             &p.Name,
		Slug:             &p.Slug,
		Description:      &p.Description,
		ShortDescription: &p.ShortDescription,
		Price:            &cents,
		StockQuantity:    &p.Stock,
		GradientFrom:     &p.GradientFrom,
		GradientTo:       &p.GradientTo,
		IsFeatured:       &p.Featured,
		IsBestseller:     &p.Bestseller,
		DisplayOrder:     &p.DisplayOrder,
		ProteinGrams:     &p.ProteinGrams,
		Calories:         &p.Calories,
		IsGlutenFree:     &p.GlutenFree,
		IsDairyFree:      &p.DairyFree,
		IsVegan:          &p.Vegan,
		IsKetoFriendly:   &p.KetoFriendly,
		IsActive:         &active,
	}
	if p.CompareAtPrice != "" {
		compare, err := decimal.NewFromString(p.CompareAtPrice)
		if err != nil {
			return nil, fmt.Errorf("product %s compare at price %q: %w", p.Slug, p.CompareAtPrice, err)
		}
		c := money.FromDecimal(compare)
		input.CompareAtPrice = &c
	}
	if id, ok := categoryIDs[p.CategorySlug]; ok {
		input.CategoryID = &id
	}
	return input, nil
}
