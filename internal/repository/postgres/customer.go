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

// customerSelect joins every customer with the stats of their paid orders.
const customerSelect = `
	WITH stats AS (
		SELECT user_id,
		       COUNT(*)            AS order_count,
		       SUM(total)::bigint  AS total_spent,
		       MAX(created_at)     AS last_order_date
		FROM orders
		WHERE payment_status = 'paid' AND user_id IS NOT NULL
		GROUP BY user_id
	)
	SELECT u.id, u.email, u.first_name, u.last_name, u.phone, u.is_active, u.created_at,
	       COALESCE(s.order_count, 0), COALESCE(s.total_spent, 0), s.last_order_date`

const customerFrom = `
	FROM users u
	LEFT JOIN stats s ON s.user_id = u.id`

// recentOrderSelect selects the compact order row used by the dashboard and
// the customer detail page.
const recentOrderSelect = `
	SELECT o.id, o.order_number, o.status, o.payment_status, o.total,
	       (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id),
	       o.fulfillment_type, o.requested_date, o.created_at
	FROM orders o`

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	pool database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool database.DBTX) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// List returns customers ordered by lifetime spend with the total count.
func (r *CustomerRepository) List(ctx context.Context, filter repository.CustomerFilter) ([]domain.CustomerSummary, int, error) {
	conditions := []string{"u.role = 'customer'"}
	var (
		args     []any
		argIndex = 1
	)

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}
	if filter.HasOrders != nil {
		if *filter.HasOrders {
			conditions = append(conditions, "s.order_count > 0")
		} else {
			conditions = append(conditions, "s.order_count IS NULL")
		}
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`%s, count(*) OVER() AS total_count %s
		WHERE %s
		ORDER BY s.total_spent DESC NULLS LAST, u.created_at DESC
		LIMIT $%d OFFSET $%d`,
		customerSelect, customerFrom, strings.Join(conditions, " AND "), argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var (
		customers  = []domain.CustomerSummary{}
		totalCount int
	)
	for rows.Next() {
		c, err := scanCustomer(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customer rows: %w", err)
	}
	return customers, totalCount, nil
}

// Get returns a customer with their stats and latest orders.
func (r *CustomerRepository) Get(ctx context.Context, id string, recentOrders int) (*domain.CustomerDetail, error) {
	summary, err := scanCustomer(r.pool.QueryRow(ctx,
		customerSelect+customerFrom+` WHERE u.id = $1 AND u.role = 'customer'`, id))
	if err != nil {
		return nil, err
	}

	detail := &domain.CustomerDetail{
		CustomerSummary:   *summary,
		AverageOrderValue: money.Average(summary.TotalSpent, int64(summary.OrderCount)),
	}

	detail.RecentOrders, err = queryRecentOrders(ctx, r.pool,
		recentOrderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC LIMIT $2`, id, recentOrders)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func scanCustomer(row pgx.Row, extra ...any) (*domain.CustomerSummary, error) {
	var c domain.CustomerSummary
	dest := []any{
		&c.ID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&c.Phone,
		&c.IsActive,
		&c.CreatedAt,
		&c.OrderCount,
		&c.TotalSpent,
		&c.LastOrderDate,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

func queryRecentOrders(ctx context.Context, db database.DBTX, query string, args ...any) ([]domain.RecentOrder, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.RecentOrder{}
	for rows.Next() {
		var o domain.RecentOrder
		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.Status,
			&o.PaymentStatus,
			&o.Total,
			&o.ItemCount,
			&o.FulfillmentType,
			&o.RequestedDate,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recent order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent orders: %w", err)
	}
	return orders, nil
}
