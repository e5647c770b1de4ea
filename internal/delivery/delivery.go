// Package delivery computes the dates and time slots the bakery can deliver
// on, given product lead times and the daily order cutoff.
package delivery

import (
	"slices"
	"time"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const (
	// DefaultDaysAhead is how many candidate dates are offered.
	DefaultDaysAhead = 14
	// validationWindowDays bounds the search when validating a requested date.
	validationWindowDays = 30
	// slotBufferHours is the minimum gap between now and a same-day slot start.
	slotBufferHours = 2
)

// TimeSlot is a delivery window within a day.
type TimeSlot struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

var timeSlots = []TimeSlot{
	{ID: "morning", Label: "Morning (9am - 12pm)", StartHour: 9, EndHour: 12},
	{ID: "afternoon", Label: "Afternoon (12pm - 5pm)", StartHour: 12, EndHour: 17},
	{ID: "evening", Label: "Evening (5pm - 8pm)", StartHour: 17, EndHour: 20},
}

// AllTimeSlots returns every slot the bakery offers.
func AllTimeSlots() []TimeSlot {
	return slices.Clone(timeSlots)
}

// IsValidTimeSlot reports whether id names a known slot.
func IsValidTimeSlot(id string) bool {
	return slices.ContainsFunc(timeSlots, func(s TimeSlot) bool { return s.ID == id })
}

// Scheduler answers delivery date and slot questions in the store's time zone.
type Scheduler struct {
	cutoffHour int
	loc        *time.Location
	now        func() time.Time
}

// NewScheduler creates a Scheduler. Orders placed at or after cutoffHour
// need one extra day.
func NewScheduler(cutoffHour int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{cutoffHour: cutoffHour, loc: loc, now: time.Now}
}

// WithClock replaces the scheduler's clock. Used by tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Location is the store time zone.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Today returns the current date in the store time zone.
func (s *Scheduler) Today() time.Time {
	return domain.DateOf(s.now().In(s.loc))
}

// EarliestDate is the first date an order with leadTimeHours can be
// delivered on.
func (s *Scheduler) EarliestDate(leadTimeHours int) time.Time {
	now := s.now().In(s.loc)
	hours := leadTimeHours
	if now.Hour() >= s.cutoffHour {
		hours += 24
	}
	days := (hours + 23) / 24
	return domain.DateOf(now).AddDate(0, 0, days)
}

// AvailableDates lists the delivery dates within daysAhead days of the
// earliest date. availableDays restricts weekdays (0=Mon .. 6=Sun); empty
// means every day.
func (s *Scheduler) AvailableDates(leadTimeHours, daysAhead int, availableDays []int) []time.Time {
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}
	earliest := s.EarliestDate(leadTimeHours)
	dates := make([]time.Time, 0, daysAhead)
	for i := range daysAhead {
		d := earliest.AddDate(0, 0, i)
		if len(availableDays) == 0 || slices.Contains(availableDays, domain.ISOWeekday(d)) {
			dates = append(dates, d)
		}
	}
	return dates
}

// TimeSlots returns the slots still bookable on date. Past dates have none;
// today only keeps slots starting more than two hours from now.
func (s *Scheduler) TimeSlots(date time.Time) []TimeSlot {
	now := s.now().In(s.loc)
	today := domain.DateOf(now)
	day := s.normalize(date)

	switch {
	case day.Before(today):
		return []TimeSlot{}
	case day.Equal(today):
		out := make([]TimeSlot, 0, len(timeSlots))
		for _, slot := range timeSlots {
			if slot.StartHour > now.Hour()+slotBufferHours {
				out = append(out, slot)
			}
		}
		return out
	default:
		return AllTimeSlots()
	}
}

// ValidateDate checks a requested delivery date against the lead time and
// allowed weekdays.
func (s *Scheduler) ValidateDate(date time.Time, leadTimeHours int, availableDays []int) error {
	available := s.AvailableDates(leadTimeHours, validationWindowDays, availableDays)
	if len(available) == 0 {
		return apperrors.InvalidInput("No delivery dates available")
	}
	day := s.normalize(date)
	if day.Before(available[0]) {
		return apperrors.InvalidInputf("This item requires %d days advance notice", leadTimeHours/24)
	}
	if len(availableDays) > 0 && !slices.Contains(availableDays, domain.ISOWeekday(day)) {
		return apperrors.InvalidInput("Delivery not available on this day")
	}
	return nil
}

// ValidateTimeSlot checks that slot is still bookable on date.
func (s *Scheduler) ValidateTimeSlot(date time.Time, slot string) error {
	for _, ts := range s.TimeSlots(date) {
		if ts.ID == slot {
			return nil
		}
	}
	return apperrors.InvalidInput("Time slot not available")
}

// normalize reads the calendar date of t as a date in the store time zone.
func (s *Scheduler) normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Requirements folds the delivery constraints of several products: the
// longest lead time wins and allowed weekdays are intersected. A nil days
// result means no weekday restriction; an empty one means no common day.
func Requirements(products []*domain.Product, defaultLeadTime int) (leadTime int, days []int) {
	for _, p := range products {
		leadTime = max(leadTime, p.LeadTime(defaultLeadTime))
		if len(p.AvailableDays) == 0 {
			continue
		}
		if days == nil {
			days = slices.Clone(p.AvailableDays)
			continue
		}
		days = slices.DeleteFunc(days, func(d int) bool { return !slices.Contains(p.AvailableDays, d) })
	}
	return leadTime, days
}

// Quote is the shipping estimate shown before checkout.
type Quote struct {
	Subtotal              int64  `json:"subtotal"`
	FulfillmentType       string `json:"fulfillment_type"`
	ShippingCost          int64  `json:"shipping_cost"`
	FreeDeliveryThreshold int64  `json:"free_delivery_threshold"`
	AmountToFreeDelivery  int64  `json:"amount_to_free_delivery"`
	Available             bool   `json:"available"`
}

// NewQuote prices fulfillment of subtotal under settings.
func NewQuote(settings domain.BusinessSettings, subtotal int64, fulfillmentType string) Quote {
	q := Quote{
		Subtotal:              subtotal,
		FulfillmentType:       fulfillmentType,
		ShippingCost:          settings.ShippingCost(subtotal, fulfillmentType),
		FreeDeliveryThreshold: settings.FreeDeliveryThreshold,
	}
	switch fulfillmentType {
	case domain.FulfillmentPickup:
		q.Available = settings.PickupAvailable
	default:
		q.Available = settings.DeliveryAvailable
		if settings.FreeDeliveryThreshold > subtotal {
			q.AmountToFreeDelivery = settings.FreeDeliveryThreshold - subtotal
		}
	}
	return q
}
