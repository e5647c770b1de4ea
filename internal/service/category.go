package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/slug"
)

// CategoryService implements category browsing and administration.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

// CategoryInput holds category fields; nil fields are left unchanged on
// update.
type CategoryInput struct {
	Name         *string
	Slug         *string
	Description  *string
	ImageURL     *string
	DisplayOrder *int
	IsActive     *bool
}

// List returns categories ordered for display. Storefront callers pass
// activeOnly.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	categories, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetBySlug returns a category. Inactive categories are hidden unless
// includeInactive is set.
func (s *CategoryService) GetBySlug(ctx context.Context, categorySlug string, includeInactive bool) (*domain.Category, error) {
	category, err := s.repo.GetBySlug(ctx, categorySlug)
	if err != nil {
		return nil, notFound(err, "Category")
	}
	if !category.IsActive && !includeInactive {
		return nil, apperrors.NotFound("Category")
	}
	return category, nil
}

// Create adds a category. The slug defaults to one derived from the name.
func (s *CategoryService) Create(ctx context.Context, input *CategoryInput) (*domain.Category, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.InvalidInput("Category name is required")
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: now,
	}
	input.apply(category)
	if category.Slug == "" {
		category.Slug = slug.Generate(category.Name)
	}
	category.UpdatedAt = now

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)
	return category, nil
}

// Update changes a category.
func (s *CategoryService) Update(ctx context.Context, id string, input *CategoryInput) (*domain.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Category")
	}

	input.apply(category)
	category.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, notFound(fmt.Errorf("update category: %w", err), "Category")
	}

	s.logger.InfoContext(ctx, "category updated", slog.String("category_id", category.ID))
	return category, nil
}

// Delete removes a category. Its products keep existing without one.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(fmt.Errorf("delete category: %w", err), "Category")
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

func (in *CategoryInput) apply(c *domain.Category) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		c.Slug = *in.Slug
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.ImageURL != nil {
		c.ImageURL = *in.ImageURL
	}
	if in.DisplayOrder != nil {
		c.DisplayOrder = *in.DisplayOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}
