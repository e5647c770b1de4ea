package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

type mockCategories struct {
	mock.Mock
}

func (m *mockCategories) GetBySlug(ctx context.Context, slug string, includeInactive bool) (*domain.Category, error) {
	args := m.Called(ctx, slug, includeInactive)
	if c := args.Get(0); c != nil {
		return c.(*domain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategories) Create(ctx context.Context, input *service.CategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, input)
	if c := args.Get(0); c != nil {
		return c.(*domain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProducts struct {
	mock.Mock
}

func (m *mockProducts) Create(ctx context.Context, input *service.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, input)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProducts) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeeder_Run(t *testing.T) {
	cats := []categorySeed{
		{Name: "Protein Brownies", Slug: "protein-brownies", DisplayOrder: 2},
		{Name: "Protein Bars", Slug: "protein-bars", DisplayOrder: 4},
	}
	prods := []productSeed{
		{SKU: "BRW-DC-001", Name: "Double Chocolate Protein Brownie", Slug: "double-chocolate-protein-brownie", Price: "5.49", CategorySlug: "protein-brownies"},
		{SKU: "BAR-MC-003", Name: "Mint Chocolate Protein Bar", Slug: "mint-chocolate-protein-bar", Price: "3.99", CompareAtPrice: "4.49", CategorySlug: "protein-bars"},
	}

	categories := new(mockCategories)
	categories.On("GetBySlug", mock.Anything, "protein-brownies", true).Return(&domain.Category{ID: "cat-brownies"}, nil)
	categories.On("GetBySlug", mock.Anything, "protein-bars", true).Return(nil, apperrors.NotFound("Category"))
	categories.On("Create", mock.Anything, mock.MatchedBy(func(in *service.CategoryInput) bool {
		return *in.Slug == "protein-bars" && *in.DisplayOrder == 4 && *in.IsActive
	})).Return(&domain.Category{ID: "cat-bars"}, nil).Once()

	products := new(mockProducts)
	products.On("GetBySlug", mock.Anything, "double-chocolate-protein-brownie").Return(&domain.Product{ID: "p-1"}, nil)
	products.On("GetBySlug", mock.Anything, "mint-chocolate-protein-bar").Return(nil, apperrors.NotFound("Product"))
	products.On("Create", mock.Anything, mock.MatchedBy(func(in *service.ProductInput) bool {
		return *in.SKU == "BAR-MC-003" &&
			*in.Price == 399 &&
			in.CompareAtPrice != nil && *in.CompareAtPrice == 449 &&
			in.CategoryID != nil && *in.CategoryID == "cat-bars"
	})).Return(&domain.Product{ID: "p-2"}, nil).Once()

	res, err := NewSeeder(categories, products, products, testLogger()).Run(context.Background(), cats, prods)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{Categories: 1, Products: 1}, res)
	categories.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestSeeder_LookupError(t *testing.T) {
	categories := new(mockCategories)
	categories.On("GetBySlug", mock.Anything, "protein-bars", true).Return(nil, errors.New("connection reset"))

	_, err := NewSeeder(categories, new(mockProducts), new(mockProducts), testLogger()).
		Run(context.Background(), []categorySeed{{Slug: "protein-bars"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protein-bars")
	categories.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSampleCatalog(t *testing.T) {
	slugs := make(map[string]bool)
	for _, c := range sampleCategories {
		slugs[c.Slug] = true
	}
	skus := make(map[string]bool)
	for _, p := range sampleProducts {
		assert.True(t, slugs[p.CategorySlug], "product %s has unknown category %s", p.Slug, p.CategorySlug)
		assert.False(t, skus[p.SKU], "duplicate sku %s", p.SKU)
		skus[p.SKU] = true

		input, err := p.input(map[string]string{p.CategorySlug: "id"})
		require.NoError(t, err, p.Slug)
		assert.Positive(t, *input.Price, p.Slug)
	}
}
