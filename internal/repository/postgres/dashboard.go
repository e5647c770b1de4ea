package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	"github.com/FeliksML/web-cellar-sub000/pkg/money"
)

const analyticsTopProducts = 5

// primaryImageSubquery resolves the primary image URL of the product in the
// outer query, falling back to the first image by display order.
const primaryImageSubquery = `COALESCE((
		SELECT pi.url FROM product_images pi
		WHERE pi.product_id = %s
		ORDER BY pi.is_primary DESC, pi.display_order
		LIMIT 1), '')`

// DashboardRepository implements repository.DashboardRepository using PostgreSQL.
type DashboardRepository struct {
	pool database.DBTX
}

// NewDashboardRepository creates a new PostgreSQL-backed dashboard repository.
func NewDashboardRepository(pool database.DBTX) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// Stats computes the dashboard headline numbers.
func (r *DashboardRepository) Stats(ctx context.Context, b repository.StatsBounds) (*domain.DashboardStats, error) {
	var (
		stats     domain.DashboardStats
		prevMonth int64
	)

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
			COALESCE(SUM(total) FILTER (WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2), 0)::bigint,
			COALESCE(SUM(total) FILTER (WHERE payment_status = 'paid' AND created_at >= $3), 0)::bigint,
			COALESCE(SUM(total) FILTER (WHERE payment_status = 'paid' AND created_at >= $4), 0)::bigint,
			COALESCE(SUM(total) FILTER (WHERE payment_status = 'paid' AND created_at >= $5 AND created_at < $4), 0)::bigint,
			COUNT(*) FILTER (WHERE status = 'pending'),
			(SELECT COUNT(*) FROM products
			 WHERE is_active AND track_inventory AND stock_quantity > 0 AND stock_quantity <= low_stock_threshold),
			(SELECT COUNT(*) FROM products
			 WHERE is_active AND track_inventory AND stock_quantity <= 0),
			(SELECT COUNT(*) FROM reviews WHERE NOT is_approved)
		FROM orders`,
		b.TodayStart, b.TomorrowStart, b.WeekStart, b.MonthStart, b.PrevMonthStart,
	).Scan(
		&stats.OrdersToday,
		&stats.RevenueToday,
		&stats.RevenueThisWeek,
		&stats.RevenueThisMonth,
		&prevMonth,
		&stats.PendingOrdersCount,
		&stats.LowStockCount,
		&stats.OutOfStockCount,
		&stats.PendingReviewsCount,
	)
	if err != nil {
		return nil, fmt.Errorf("query dashboard stats: %w", err)
	}

	if prevMonth > 0 {
		growth := money.Growth(stats.RevenueThisMonth, prevMonth)
		stats.RevenueGrowthPercent = &growth
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status`,
		b.TodayStart, b.TomorrowStart,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders by status: %w", err)
	}
	defer rows.Close()

	stats.OrdersTodayByStatus = []domain.OrderStatusCount{}
	for rows.Next() {
		var sc domain.OrderStatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.OrdersTodayByStatus = append(stats.OrdersTodayByStatus, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return &stats, nil
}

// TopProducts returns the best sellers by quantity over paid orders created
// since the given time.
func (r *DashboardRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]domain.TopProduct, error) {
	return r.topProducts(ctx, since, time.Time{}, limit)
}

func (r *DashboardRepository) topProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopProduct, error) {
	args := []any{from, limit}
	upper := ""
	if !to.IsZero() {
		upper = " AND o.created_at < $3"
		args = append(args, to)
	}

	query := fmt.Sprintf(`
		SELECT oi.product_id, oi.product_name, oi.product_sku,
		       SUM(oi.quantity)::bigint, SUM(oi.subtotal)::bigint,
		       %s
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.payment_status = 'paid' AND oi.product_id IS NOT NULL AND o.created_at >= $1%s
		GROUP BY oi.product_id, oi.product_name, oi.product_sku
		ORDER BY 4 DESC, 5 DESC
		LIMIT $2`,
		fmt.Sprintf(primaryImageSubquery, "oi.product_id"), upper)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	products := []domain.TopProduct{}
	for rows.Next() {
		var p domain.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.SKU, &p.QuantitySold, &p.Revenue, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top products: %w", err)
	}
	return products, nil
}

// LowStock returns active tracked products at or below their threshold,
// emptiest first.
func (r *DashboardRepository) LowStock(ctx context.Context, limit int) ([]domain.LowStockProduct, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.sku, p.stock_quantity, p.low_stock_threshold, %s
		FROM products p
		WHERE p.is_active AND p.track_inventory AND p.stock_quantity <= p.low_stock_threshold
		ORDER BY p.stock_quantity ASC, p.name ASC
		LIMIT $1`,
		fmt.Sprintf(primaryImageSubquery, "p.id"))

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query low stock products: %w", err)
	}
	defer rows.Close()

	products := []domain.LowStockProduct{}
	for rows.Next() {
		var p domain.LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.StockQuantity, &p.LowStockThreshold, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan low stock product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low stock products: %w", err)
	}
	return products, nil
}

// RecentOrders returns the newest orders.
func (r *DashboardRepository) RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	return queryRecentOrders(ctx, r.pool, recentOrderSelect+` ORDER BY o.created_at DESC LIMIT $1`, limit)
}

// Analytics summarises paid orders created in [from, to). Revenue is bucketed
// per calendar day in loc.
func (r *DashboardRepository) Analytics(ctx context.Context, from, to time.Time, loc *time.Location) (*domain.SalesAnalytics, error) {
	a := &domain.SalesAnalytics{
		RevenueByPeriod:      []domain.RevenueByPeriod{},
		FulfillmentBreakdown: map[string]int{},
	}

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)::bigint
		FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2`,
		from, to,
	).Scan(&a.TotalOrders, &a.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("query sales totals: %w", err)
	}
	a.AverageOrderValue = money.Average(a.TotalRevenue, int64(a.TotalOrders))

	rows, err := r.pool.Query(ctx, `
		SELECT to_char((created_at AT TIME ZONE $3)::date, 'YYYY-MM-DD') AS period,
		       SUM(total)::bigint, COUNT(*)
		FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2
		GROUP BY period
		ORDER BY period`,
		from, to, zoneName(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("query revenue by period: %w", err)
	}
	for rows.Next() {
		var p domain.RevenueByPeriod
		if err := rows.Scan(&p.Period, &p.Revenue, &p.OrderCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan revenue period: %w", err)
		}
		a.RevenueByPeriod = append(a.RevenueByPeriod, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue periods: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT fulfillment_type, COUNT(*)
		FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2
		GROUP BY fulfillment_type`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query fulfillment breakdown: %w", err)
	}
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan fulfillment count: %w", err)
		}
		a.FulfillmentBreakdown[kind] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fulfillment counts: %w", err)
	}

	a.TopProducts, err = r.topProducts(ctx, from, to, analyticsTopProducts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// zoneName returns an IANA zone name PostgreSQL understands.
func zoneName(loc *time.Location) string {
	if loc == nil || loc.String() == "Local" {
		return "UTC"
	}
	return loc.String()
}
