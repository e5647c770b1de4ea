package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
	"github.com/FeliksML/web-cellar-sub000/pkg/money"
)

const (
	reviewFields = `
		r.id, r.product_id, r.user_id, r.order_item_id, r.rating, r.title, r.content,
		r.is_verified_purchase, r.is_approved, r.is_featured, r.helpful_count,
		r.response, r.response_at, r.created_at, r.updated_at,
		u.first_name, u.last_name, u.email, p.name`
	reviewFrom = `
	FROM reviews r
	JOIN users u ON u.id = r.user_id
	JOIN products p ON p.id = r.product_id`
	reviewSelect = `SELECT` + reviewFields + reviewFrom
)

// refreshRatingQuery recomputes the cached rating of a product from its
// approved reviews.
const refreshRatingQuery = `
	UPDATE products SET
		average_rating = COALESCE((
			SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE product_id = $1 AND is_approved
		), 0),
		review_count = (SELECT COUNT(*) FROM reviews WHERE product_id = $1 AND is_approved),
		updated_at = NOW()
	WHERE id = $1`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review and refreshes the product rating.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reviews (
			id, product_id, user_id, order_item_id, rating, title, content,
			is_verified_purchase, is_approved, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := tx.Exec(ctx, query,
		rv.ID,
		rv.ProductID,
		rv.UserID,
		rv.OrderItemID,
		rv.Rating,
		rv.Title,
		rv.Content,
		rv.IsVerifiedPurchase,
		rv.IsApproved,
		rv.IsFeatured,
		rv.CreatedAt,
		rv.UpdatedAt,
	); err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return apperrors.AlreadyExists("You have already reviewed this product")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if _, err := tx.Exec(ctx, refreshRatingQuery, rv.ProductID); err != nil {
		return fmt.Errorf("refresh product rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return scanReview(r.pool.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
}

// List returns reviews matching filter with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)
	add := func(clause string, v any) {
		conditions = append(conditions, fmt.Sprintf(clause, argIndex))
		args = append(args, v)
		argIndex++
	}

	if filter.ProductID != nil {
		add("r.product_id = $%d", *filter.ProductID)
	}
	if filter.IsApproved != nil {
		add("r.is_approved = $%d", *filter.IsApproved)
	}
	if filter.IsFeatured != nil {
		add("r.is_featured = $%d", *filter.IsFeatured)
	}
	if filter.HasResponse != nil {
		if *filter.HasResponse {
			conditions = append(conditions, "r.response <> ''")
		} else {
			conditions = append(conditions, "r.response = ''")
		}
	}
	if filter.MinRating != nil {
		add("r.rating >= $%d", *filter.MinRating)
	}
	if filter.MaxRating != nil {
		add("r.rating <= $%d", *filter.MaxRating)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total_count %s%s
		ORDER BY r.is_featured DESC, r.helpful_count DESC, r.created_at DESC
		LIMIT $%d OFFSET $%d`,
		reviewFields, reviewFrom, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    = []domain.Review{}
		totalCount int
	)
	for rows.Next() {
		rv, err := scanReview(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, totalCount, nil
}

// Summary aggregates the approved reviews of a product.
func (r *ReviewRepository) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE product_id = $1 AND is_approved
		GROUP BY rating`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize reviews: %w", err)
	}
	defer rows.Close()

	summary := domain.NewReviewSummary()
	var sum int64
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating bucket: %w", err)
		}
		summary.RatingDistribution[rating] = count
		summary.TotalReviews += count
		sum += int64(rating * count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating buckets: %w", err)
	}

	summary.AverageRating = money.RoundRating(sum, int64(summary.TotalReviews))
	return summary, nil
}

// Update persists the editable and moderation fields of a review and
// refreshes the product rating.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE reviews
		SET rating = $1, title = $2, content = $3, is_approved = $4, is_featured = $5,
		    response = $6, response_at = $7, updated_at = $8
		WHERE id = $9`,
		rv.Rating,
		rv.Title,
		rv.Content,
		rv.IsApproved,
		rv.IsFeatured,
		rv.Response,
		rv.ResponseAt,
		rv.UpdatedAt,
		rv.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, refreshRatingQuery, rv.ProductID); err != nil {
		return fmt.Errorf("refresh product rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a review and refreshes the product rating.
func (r *ReviewRepository) Delete(ctx context.Context, rv *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, rv.ID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, refreshRatingQuery, rv.ProductID); err != nil {
		return fmt.Errorf("refresh product rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// MarkHelpful records a helpful vote; repeated votes by the same user are
// ignored.
func (r *ReviewRepository) MarkHelpful(ctx context.Context, reviewID, userID string) (*domain.HelpfulResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`INSERT INTO review_helpful (review_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		reviewID, userID,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("insert helpful vote: %w", err)
	}

	res := &domain.HelpfulResult{Voted: ct.RowsAffected() == 1}
	query := `SELECT helpful_count FROM reviews WHERE id = $1`
	if res.Voted {
		query = `UPDATE reviews SET helpful_count = helpful_count + 1 WHERE id = $1 RETURNING helpful_count`
	}
	if err := tx.QueryRow(ctx, query, reviewID).Scan(&res.HelpfulCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("read helpful count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return res, nil
}

func scanReview(row pgx.Row, extra ...any) (*domain.Review, error) {
	var (
		rv       domain.Review
		reviewer domain.User
	)
	dest := []any{
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.OrderItemID,
		&rv.Rating,
		&rv.Title,
		&rv.Content,
		&rv.IsVerifiedPurchase,
		&rv.IsApproved,
		&rv.IsFeatured,
		&rv.HelpfulCount,
		&rv.Response,
		&rv.ResponseAt,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&reviewer.FirstName,
		&reviewer.LastName,
		&reviewer.Email,
		&rv.ProductName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	rv.ReviewerName = reviewer.DisplayName()
	return &rv, nil
}
