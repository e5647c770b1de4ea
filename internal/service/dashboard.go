package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const (
	defaultAnalyticsDays = 30
	widgetRows           = 5
	recentCustomerOrders = 10
)

// DashboardService computes the back office reports. Day, week and month
// boundaries follow the store's time zone.
type DashboardService struct {
	repo     repository.DashboardRepository
	products *ProductService
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(repo repository.DashboardRepository, products *ProductService, loc *time.Location, logger *slog.Logger) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{
		repo:     repo,
		products: products,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Bounds returns the period starts around now. Weeks start on Monday.
func Bounds(now time.Time, loc *time.Location) repository.StatsBounds {
	local := now.In(loc)
	today := domain.DateOf(local)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
	return repository.StatsBounds{
		TodayStart:     today,
		TomorrowStart:  today.AddDate(0, 0, 1),
		WeekStart:      today.AddDate(0, 0, -domain.ISOWeekday(today)),
		MonthStart:     monthStart,
		PrevMonthStart: monthStart.AddDate(0, -1, 0),
	}
}

// Stats returns the headline numbers.
func (s *DashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats, err := s.repo.Stats(ctx, Bounds(s.now(), s.loc))
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// Widgets bundles the stats with the top five products of the last 30
// days, five low stock alerts and the five latest orders.
func (s *DashboardService) Widgets(ctx context.Context) (*domain.DashboardWidgets, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.TopProducts(ctx, widgetRows, defaultAnalyticsDays)
	if err != nil {
		return nil, err
	}
	low, err := s.LowStock(ctx, widgetRows)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentOrders(ctx, widgetRows)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return &domain.DashboardWidgets{
		Stats:          stats,
		TopProducts:    top,
		LowStockAlerts: low,
		RecentOrders:   recent,
	}, nil
}

// Analytics summarises sales between two calendar dates, both inclusive.
// Missing dates default to the last 30 days.
func (s *DashboardService) Analytics(ctx context.Context, start, end *time.Time) (*domain.SalesAnalytics, error) {
	today := domain.DateOf(s.now().In(s.loc))
	to := today
	if end != nil {
		to = s.localDate(*end)
	}
	from := to.AddDate(0, 0, -defaultAnalyticsDays)
	if start != nil {
		from = s.localDate(*start)
	}
	if to.Before(from) {
		return nil, apperrors.InvalidInput("End date must not be before start date")
	}

	analytics, err := s.repo.Analytics(ctx, from, to.AddDate(0, 0, 1), s.loc)
	if err != nil {
		return nil, fmt.Errorf("sales analytics: %w", err)
	}
	return analytics, nil
}

func (s *DashboardService) localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// LowStock lists tracked products at or below their threshold.
func (s *DashboardService) LowStock(ctx context.Context, limit int) ([]domain.LowStockProduct, error) {
	products, err := s.repo.LowStock(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("low stock products: %w", err)
	}
	return products, nil
}

// TopProducts lists the best sellers of the last days days.
func (s *DashboardService) TopProducts(ctx context.Context, limit, days int) ([]domain.TopProduct, error) {
	since := domain.DateOf(s.now().In(s.loc)).AddDate(0, 0, -days)
	products, err := s.repo.TopProducts(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return products, nil
}

// BulkUpdateStock sets the stock of several products. Failures are
// reported per product rather than aborting the batch.
func (s *DashboardService) BulkUpdateStock(ctx context.Context, updates []domain.StockUpdate) *domain.BulkStockResult {
	result := &domain.BulkStockResult{Errors: []string{}}
	for _, u := range updates {
		if _, err := s.products.SetStock(ctx, u.ProductID, u.NewQuantity); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Product %s: %s", u.ProductID, clientMessage(err)))
			continue
		}
		result.UpdatedCount++
	}
	s.logger.InfoContext(ctx, "bulk stock update",
		slog.Int("updated", result.UpdatedCount),
		slog.Int("failed", len(result.Errors)),
	)
	return result
}

// CustomerService reads customer accounts for the back office.
type CustomerService struct {
	repo repository.CustomerRepository
}

// NewCustomerService creates a new customer service.
func NewCustomerService(repo repository.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// List returns customers, biggest spenders first.
func (s *CustomerService) List(ctx context.Context, filter repository.CustomerFilter) ([]domain.CustomerSummary, int, error) {
	customers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

// Get returns a customer with their latest orders.
func (s *CustomerService) Get(ctx context.Context, id string) (*domain.CustomerDetail, error) {
	customer, err := s.repo.Get(ctx, id, recentCustomerOrders)
	if err != nil {
		return nil, notFound(err, "Customer")
	}
	return customer, nil
}
