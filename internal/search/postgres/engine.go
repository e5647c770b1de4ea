// Package postgres implements product search directly on the catalog tables.
// It is used when no Elasticsearch cluster is configured; indexing is a no-op.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/internal/search"
)

// Engine searches products with the repository's ILIKE filter.
type Engine struct {
	products repository.ProductRepository
}

var _ search.Engine = (*Engine)(nil)

// New creates a database-backed search engine.
func New(products repository.ProductRepository) *Engine {
	return &Engine{products: products}
}

func (e *Engine) IndexProduct(context.Context, *domain.Product) error { return nil }

func (e *Engine) DeleteProduct(context.Context, string) error { return nil }

func (e *Engine) BulkIndex(context.Context, []domain.Product) error { return nil }

// Search lists active products matching the query text.
func (e *Engine) Search(ctx context.Context, query *search.Query) (*search.Result, error) {
	query.Normalize()

	active := true
	filter := repository.ProductFilter{
		CategorySlug:   query.CategorySlug,
		IsActive:       &active,
		IsGlutenFree:   query.IsGlutenFree,
		IsDairyFree:    query.IsDairyFree,
		IsVegan:        query.IsVegan,
		IsKetoFriendly: query.IsKetoFriendly,
		MinPrice:       query.MinPrice,
		MaxPrice:       query.MaxPrice,
		Page:           query.Page,
		PerPage:        query.PerPage,
	}
	if text := strings.TrimSpace(query.Text); text != "" {
		filter.Search = &text
	}

	switch query.SortBy {
	case search.SortPriceAsc:
		filter.SortBy = repository.SortByPrice
	case search.SortPriceDesc:
		filter.SortBy = repository.SortByPrice
		filter.SortDesc = true
	case search.SortNewest:
		filter.SortBy = repository.SortByCreatedAt
		filter.SortDesc = true
	default:
		filter.SortBy = repository.SortByDisplayOrder
	}

	products, total, err := e.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	return &search.Result{
		Products: products,
		Total:    total,
		Page:     query.Page,
		PerPage:  query.PerPage,
	}, nil
}
