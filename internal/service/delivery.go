package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/delivery"
	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const (
	dateLayout   = "2006-01-02"
	maxDaysAhead = 60
)

// DeliveryService answers delivery date, slot and pricing questions.
type DeliveryService struct {
	scheduler       *delivery.Scheduler
	products        repository.ProductRepository
	settings        repository.SettingsRepository
	defaultLeadTime int
	logger          *slog.Logger
}

// NewDeliveryService creates a new delivery service. defaultLeadTime is
// used when the business settings do not set one.
func NewDeliveryService(
	scheduler *delivery.Scheduler,
	products repository.ProductRepository,
	settings repository.SettingsRepository,
	defaultLeadTime int,
	logger *slog.Logger,
) *DeliveryService {
	return &DeliveryService{
		scheduler:       scheduler,
		products:        products,
		settings:        settings,
		defaultLeadTime: defaultLeadTime,
		logger:          logger,
	}
}

// DatesQuery selects the delivery dates to list. A product narrows the
// result to its lead time and weekdays.
type DatesQuery struct {
	LeadTimeHours *int
	DaysAhead     int
	ProductID     *string
}

// DefaultLeadTime is the lead time of products without their own.
func (s *DeliveryService) DefaultLeadTime(ctx context.Context) int {
	settings := current(ctx, s.settings, s.logger)
	if settings.DefaultLeadTimeHours > 0 {
		return settings.DefaultLeadTimeHours
	}
	return s.defaultLeadTime
}

// Dates lists the available delivery dates.
func (s *DeliveryService) Dates(ctx context.Context, q DatesQuery) ([]string, error) {
	lead := s.DefaultLeadTime(ctx)
	var days []int
	if q.ProductID != nil {
		product, err := s.products.GetByID(ctx, *q.ProductID)
		if err != nil {
			return nil, notFound(err, "Product")
		}
		lead, days = delivery.Requirements([]*domain.Product{product}, lead)
	}
	if q.LeadTimeHours != nil {
		lead = max(lead, *q.LeadTimeHours)
	}
	if q.DaysAhead > maxDaysAhead {
		return nil, apperrors.InvalidInput("days_ahead must be at most 60")
	}

	dates := s.scheduler.AvailableDates(lead, q.DaysAhead, days)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(dateLayout)
	}
	return out, nil
}

// Slots lists the time slots still bookable on date.
func (s *DeliveryService) Slots(date string) ([]delivery.TimeSlot, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	return s.scheduler.TimeSlots(day), nil
}

func (s *DeliveryService) parseDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, value, s.scheduler.Location())
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}
	return day, nil
}

// Quote prices fulfillment of subtotal.
func (s *DeliveryService) Quote(ctx context.Context, subtotal int64, fulfillmentType string) (*delivery.Quote, error) {
	if subtotal < 0 {
		return nil, apperrors.InvalidInput("Subtotal must not be negative")
	}
	if fulfillmentType == "" {
		fulfillmentType = domain.FulfillmentDelivery
	}
	if fulfillmentType != domain.FulfillmentDelivery && fulfillmentType != domain.FulfillmentPickup {
		return nil, apperrors.InvalidInput("Fulfillment type must be delivery or pickup")
	}
	quote := delivery.NewQuote(current(ctx, s.settings, s.logger), subtotal, fulfillmentType)
	return &quote, nil
}
