package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/event"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const maxReviewTitleLength = 200

// ReviewService implements product reviews and their moderation.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		orders:   orders,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// ReviewInput holds review fields; nil fields are left unchanged on
// update.
type ReviewInput struct {
	Rating  *int
	Title   *string
	Content *string
}

func (s *ReviewService) product(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.products.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, notFound(err, "Product")
	}
	if !product.IsActive {
		return nil, apperrors.NotFound("Product")
	}
	return product, nil
}

// ListForProduct returns the approved reviews of a product.
func (s *ReviewService) ListForProduct(ctx context.Context, productSlug string, page, perPage int) ([]domain.Review, int, error) {
	product, err := s.product(ctx, productSlug)
	if err != nil {
		return nil, 0, err
	}
	approved := true
	reviews, total, err := s.reviews.List(ctx, repository.ReviewFilter{
		ProductID:  &product.ID,
		IsApproved: &approved,
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// Summary returns the rating breakdown of a product.
func (s *ReviewService) Summary(ctx context.Context, productSlug string) (*domain.ReviewSummary, error) {
	product, err := s.product(ctx, productSlug)
	if err != nil {
		return nil, err
	}
	summary, err := s.reviews.Summary(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	return summary, nil
}

// Create posts a review. It counts as a verified purchase when the user
// has received the product in a completed order.
func (s *ReviewService) Create(ctx context.Context, userID, productSlug string, input *ReviewInput) (*domain.Review, error) {
	product, err := s.product(ctx, productSlug)
	if err != nil {
		return nil, err
	}
	if input.Rating == nil {
		return nil, apperrors.InvalidInput("Rating is required")
	}

	now := s.now().UTC()
	review := &domain.Review{
		ID:         uuid.New().String(),
		ProductID:  product.ID,
		UserID:     userID,
		IsApproved: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	input.apply(review)
	if err := validateReview(review); err != nil {
		return nil, err
	}

	itemID, err := s.orders.FindCompletedItem(ctx, userID, product.ID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	review.OrderItemID = itemID
	review.IsVerifiedPurchase = itemID != nil

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	review.ProductName = product.Name

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", product.ID),
		slog.Int("rating", review.Rating),
		slog.Bool("verified", review.IsVerifiedPurchase),
	)
	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review created event", errAttr(err))
	}
	return review, nil
}

// Update edits the user's own review.
func (s *ReviewService) Update(ctx context.Context, userID, id string, input *ReviewInput) (*domain.Review, error) {
	review, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, apperrors.Forbidden("You can only edit your own reviews")
	}

	input.apply(review)
	if err := validateReview(review); err != nil {
		return nil, err
	}
	return s.save(ctx, review)
}

// Delete removes the user's own review.
func (s *ReviewService) Delete(ctx context.Context, userID, id string) error {
	review, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if review.UserID != userID {
		return apperrors.Forbidden("You can only delete your own reviews")
	}
	if err := s.reviews.Delete(ctx, review); err != nil {
		return notFound(fmt.Errorf("delete review: %w", err), "Review")
	}
	s.logger.InfoContext(ctx, "review deleted", slog.String("review_id", id))
	return nil
}

// MarkHelpful records the user's helpful vote. Voting twice is a no-op.
func (s *ReviewService) MarkHelpful(ctx context.Context, userID, id string) (*domain.HelpfulResult, error) {
	result, err := s.reviews.MarkHelpful(ctx, id, userID)
	if err != nil {
		return nil, notFound(fmt.Errorf("mark review helpful: %w", err), "Review")
	}
	return result, nil
}

func (s *ReviewService) Get(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Review")
	}
	return review, nil
}

// List returns reviews for moderation.
func (s *ReviewService) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// SetApproval publishes or hides a review.
func (s *ReviewService) SetApproval(ctx context.Context, id string, approved bool) (*domain.Review, error) {
	review, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	review.IsApproved = approved
	return s.save(ctx, review)
}

// SetFeatured pins or unpins a review at the top of the product page.
func (s *ReviewService) SetFeatured(ctx context.Context, id string, featured bool) (*domain.Review, error) {
	review, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	review.IsFeatured = featured
	return s.save(ctx, review)
}

// Respond attaches the bakery's public response.
func (s *ReviewService) Respond(ctx context.Context, id, response string) (*domain.Review, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperrors.InvalidInput("Response is required")
	}
	review, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	review.Response = response
	review.ResponseAt = &now
	return s.save(ctx, review)
}

// RemoveResponse deletes the bakery's response.
func (s *ReviewService) RemoveResponse(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	review.Response = ""
	review.ResponseAt = nil
	return s.save(ctx, review)
}

func (s *ReviewService) save(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	review.UpdatedAt = s.now().UTC()
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, notFound(fmt.Errorf("update review: %w", err), "Review")
	}
	return review, nil
}

func validateReview(r *domain.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return apperrors.InvalidInput("Rating must be between 1 and 5")
	}
	if len([]rune(r.Title)) > maxReviewTitleLength {
		return apperrors.InvalidInputf("Title must be at most %d characters", maxReviewTitleLength)
	}
	return nil
}

func (in *ReviewInput) apply(r *domain.Review) {
	setField(&r.Rating, in.Rating)
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		r.Content = strings.TrimSpace(*in.Content)
	}
}
