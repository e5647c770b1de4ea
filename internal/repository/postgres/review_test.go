package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

func sampleReview() *domain.Review {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &domain.Review{
		ID:         "rev-001",
		ProductID:  "prod-001",
		UserID:     "user-001",
		Rating:     5,
		Title:      "Best brownie",
		Content:    "Fudgy and packed with protein.",
		IsApproved: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func reviewRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "product_id", "user_id", "order_item_id", "rating", "title", "content",
		"is_verified_purchase", "is_approved", "is_featured", "helpful_count",
		"response", "response_at", "created_at", "updated_at",
		"first_name", "last_name", "email", "product_name", "total_count",
	})
}

func TestReviewRepository_Create_RefreshesRating(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)
	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products SET").
		WithArgs("prod-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), rv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(anyArgs(12)...).
		WillReturnError(uniqueViolation("reviews_user_product_key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleReview())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Equal(t, "You have already reviewed this product", appMessage(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_ReviewerName(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	productID := "prod-001"
	approved := true

	rows := reviewRows().
		AddRow("rev-001", "prod-001", "user-001", (*string)(nil), 5, "Great", "Yum",
			true, true, false, 3, "", (*time.Time)(nil), now, now,
			"Jane", "Baker", "jane@example.com", "Protein Brownie", 2).
		AddRow("rev-002", "prod-001", "user-002", (*string)(nil), 4, "", "",
			false, true, false, 0, "", (*time.Time)(nil), now, now,
			"", "", "sam@example.com", "Protein Brownie", 2)

	mock.ExpectQuery("SELECT").
		WithArgs("prod-001", true, 10, 0).
		WillReturnRows(rows)

	reviews, total, err := repo.List(context.Background(), repository.ReviewFilter{
		ProductID:  &productID,
		IsApproved: &approved,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Jane B.", reviews[0].ReviewerName)
	assert.Equal(t, "sam", reviews[1].ReviewerName)
	assert.Equal(t, "Protein Brownie", reviews[0].ProductName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Summary(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	rows := pgxmock.NewRows([]string{"rating", "count"}).
		AddRow(5, 3).
		AddRow(4, 1)
	mock.ExpectQuery("SELECT rating").
		WithArgs("prod-001").
		WillReturnRows(rows)

	summary, err := repo.Summary(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalReviews)
	assert.Equal(t, 4.8, summary.AverageRating)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 3}, summary.RatingDistribution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_MarkHelpful_NewVote(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_helpful").
		WithArgs("rev-001", "user-002").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("UPDATE reviews SET helpful_count").
		WithArgs("rev-001").
		WillReturnRows(pgxmock.NewRows([]string{"helpful_count"}).AddRow(4))
	mock.ExpectCommit()

	res, err := repo.MarkHelpful(context.Background(), "rev-001", "user-002")
	require.NoError(t, err)
	assert.True(t, res.Voted)
	assert.Equal(t, 4, res.HelpfulCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_MarkHelpful_RepeatVote(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_helpful").
		WithArgs("rev-001", "user-002").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT helpful_count").
		WithArgs("rev-001").
		WillReturnRows(pgxmock.NewRows([]string{"helpful_count"}).AddRow(4))
	mock.ExpectCommit()

	res, err := repo.MarkHelpful(context.Background(), "rev-001", "user-002")
	require.NoError(t, err)
	assert.False(t, res.Voted)
	assert.Equal(t, 4, res.HelpfulCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_MarkHelpful_UnknownReview(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_helpful").
		WithArgs("missing", "user-002").
		WillReturnError(foreignKeyViolation())
	mock.ExpectRollback()

	_, err := repo.MarkHelpful(context.Background(), "missing", "user-002")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
