package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/repository"
)

func statsBounds() repository.StatsBounds {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return repository.StatsBounds{
		TodayStart:     today,
		TomorrowStart:  today.AddDate(0, 0, 1),
		WeekStart:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		MonthStart:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PrevMonthStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func statsRow(prevMonth int64) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"orders_today", "revenue_today", "revenue_week", "revenue_month", "revenue_prev_month",
		"pending_orders", "low_stock", "out_of_stock", "pending_reviews",
	}).AddRow(4, int64(6000), int64(18000), int64(30000), prevMonth, 2, 3, 1, 5)
}

func TestDashboardRepository_Stats(t *testing.T) {
	mock := newMock(t)
	repo := NewDashboardRepository(mock)
	b := statsBounds()

	mock.ExpectQuery("SELECT").
		WithArgs(b.TodayStart, b.TomorrowStart, b.WeekStart, b.MonthStart, b.PrevMonthStart).
		WillReturnRows(statsRow(20000))
	mock.ExpectQuery("SELECT status").
		WithArgs(b.TodayStart, b.TomorrowStart).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("confirmed", 1).
			AddRow("pending", 3))

	stats, err := repo.Stats(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.OrdersToday)
	assert.Equal(t, int64(30000), stats.RevenueThisMonth)
	require.NotNil(t, stats.RevenueGrowthPercent)
	assert.Equal(t, 50.0, *stats.RevenueGrowthPercent)
	assert.Equal(t, 3, stats.LowStockCount)
	assert.Equal(t, 1, stats.OutOfStockCount)
	assert.Equal(t, 5, stats.PendingReviewsCount)
	assert.Equal(t, 2, stats.PendingOrdersCount)
	require.Len(t, stats.OrdersTodayByStatus, 2)
	assert.Equal(t, "pending", stats.OrdersTodayByStatus[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_Stats_NoGrowthWithoutPreviousRevenue(t *testing.T) {
	mock := newMock(t)
	repo := NewDashboardRepository(mock)
	b := statsBounds()

	mock.ExpectQuery("SELECT").
		WithArgs(b.TodayStart, b.TomorrowStart, b.WeekStart, b.MonthStart, b.PrevMonthStart).
		WillReturnRows(statsRow(0))
	mock.ExpectQuery("SELECT status").
		WithArgs(b.TodayStart, b.TomorrowStart).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}))

	stats, err := repo.Stats(context.Background(), b)
	require.NoError(t, err)
	assert.Nil(t, stats.RevenueGrowthPercent)
	assert.Empty(t, stats.OrdersTodayByStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_LowStock(t *testing.T) {
	mock := newMock(t)
	repo := NewDashboardRepository(mock)

	mock.ExpectQuery("SELECT p.id, p.name, p.sku").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "sku", "stock", "threshold", "image"}).
			AddRow("prod-002", "Keto Cookie", "CKE-001", 0, 5, "").
			AddRow("prod-001", "Protein Brownie", "BRN-001", 2, 5, "https://cdn.example.com/b.jpg"))

	products, err := repo.LowStock(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 0, products[0].StockQuantity)
	assert.Equal(t, "https://cdn.example.com/b.jpg", products[1].ImageURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_Analytics(t *testing.T) {
	mock := newMock(t)
	repo := NewDashboardRepository(mock)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum"}).AddRow(3, int64(10000)))
	mock.ExpectQuery("SELECT to_char").
		WithArgs(from, to, "UTC").
		WillReturnRows(pgxmock.NewRows([]string{"period", "revenue", "orders"}).
			AddRow("2026-03-01", int64(4000), 1).
			AddRow("2026-03-02", int64(6000), 2))
	mock.ExpectQuery("SELECT fulfillment_type").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"fulfillment_type", "count"}).
			AddRow("delivery", 2).
			AddRow("pickup", 1))
	mock.ExpectQuery("SELECT oi.product_id").
		WithArgs(from, 5, to).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "sku", "qty", "revenue", "image"}).
			AddRow("prod-001", "Protein Brownie", "BRN-001", 7, int64(3150), ""))

	a, err := repo.Analytics(context.Background(), from, to, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), a.TotalRevenue)
	assert.Equal(t, 3, a.TotalOrders)
	assert.Equal(t, int64(3333), a.AverageOrderValue)
	require.Len(t, a.RevenueByPeriod, 2)
	assert.Equal(t, "2026-03-02", a.RevenueByPeriod[1].Period)
	assert.Equal(t, map[string]int{"delivery": 2, "pickup": 1}, a.FulfillmentBreakdown)
	require.Len(t, a.TopProducts, 1)
	assert.Equal(t, 7, a.TopProducts[0].QuantitySold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZoneName(t *testing.T) {
	assert.Equal(t, "UTC", zoneName(nil))
	assert.Equal(t, "UTC", zoneName(time.Local))
	loc := time.FixedZone("Bakery", 0)
	assert.Equal(t, "Bakery", zoneName(loc))
}
