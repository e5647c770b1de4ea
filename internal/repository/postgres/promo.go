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
)

const promoColumns = `id, code, description, discount_type, discount_value, minimum_order_value,
	maximum_discount, usage_limit, usage_count, valid_from, valid_until, is_active, created_at, updated_at`

// PromoCodeRepository implements repository.PromoCodeRepository using PostgreSQL.
type PromoCodeRepository struct {
	pool database.DBTX
}

// NewPromoCodeRepository creates a new PostgreSQL-backed promo code repository.
func NewPromoCodeRepository(pool database.DBTX) *PromoCodeRepository {
	return &PromoCodeRepository{pool: pool}
}

// Create inserts a promo code.
func (r *PromoCodeRepository) Create(ctx context.Context, p *domain.PromoCode) error {
	query := `
		INSERT INTO promo_codes (` + promoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Code,
		p.Description,
		p.DiscountType,
		p.DiscountValue,
		p.MinimumOrderValue,
		p.MaximumDiscount,
		p.UsageLimit,
		p.UsageCount,
		p.ValidFrom,
		p.ValidUntil,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return apperrors.InvalidInput("Promo code already exists")
		}
		return fmt.Errorf("insert promo code: %w", err)
	}
	return nil
}

// GetByID retrieves a promo code by ID.
func (r *PromoCodeRepository) GetByID(ctx context.Context, id string) (*domain.PromoCode, error) {
	return scanPromo(r.pool.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id))
}

// GetByCode retrieves a promo code by its code.
func (r *PromoCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return scanPromo(r.pool.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, domain.NormalizePromoCode(code)))
}

// List returns promo codes newest first with the total count.
func (r *PromoCodeRepository) List(ctx context.Context, filter repository.PromoCodeFilter) ([]domain.PromoCode, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("code ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM promo_codes
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		promoColumns, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promo codes: %w", err)
	}
	defer rows.Close()

	var (
		promos     = []domain.PromoCode{}
		totalCount int
	)
	for rows.Next() {
		p, err := scanPromo(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		promos = append(promos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate promo code rows: %w", err)
	}
	return promos, totalCount, nil
}

// Update modifies a promo code.
func (r *PromoCodeRepository) Update(ctx context.Context, p *domain.PromoCode) error {
	query := `
		UPDATE promo_codes
		SET code = $1, description = $2, discount_type = $3, discount_value = $4,
		    minimum_order_value = $5, maximum_discount = $6, usage_limit = $7,
		    valid_from = $8, valid_until = $9, is_active = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, query,
		p.Code,
		p.Description,
		p.DiscountType,
		p.DiscountValue,
		p.MinimumOrderValue,
		p.MaximumDiscount,
		p.UsageLimit,
		p.ValidFrom,
		p.ValidUntil,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return apperrors.InvalidInput("Promo code already exists")
		}
		return fmt.Errorf("update promo code: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a promo code.
func (r *PromoCodeRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promo code: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanPromo(row pgx.Row, extra ...any) (*domain.PromoCode, error) {
	var p domain.PromoCode
	dest := []any{
		&p.ID,
		&p.Code,
		&p.Description,
		&p.DiscountType,
		&p.DiscountValue,
		&p.MinimumOrderValue,
		&p.MaximumDiscount,
		&p.UsageLimit,
		&p.UsageCount,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan promo code: %w", err)
	}
	return &p, nil
}
