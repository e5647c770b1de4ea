package domain

// BusinessSettings are the store-wide settings edited in the back office.
// Money fields are in cents.
type BusinessSettings struct {
	StoreName                 string   `json:"store_name"`
	StoreTagline              string   `json:"store_tagline"`
	StoreEmail                string   `json:"store_email"`
	StorePhone                string   `json:"store_phone"`
	StoreAddress              string   `json:"store_address"`
	MinimumOrderValue         int64    `json:"minimum_order_value"`
	DeliveryFee               int64    `json:"delivery_fee"`
	FreeDeliveryThreshold     int64    `json:"free_delivery_threshold"`
	PickupAvailable           bool     `json:"pickup_available"`
	DeliveryAvailable         bool     `json:"delivery_available"`
	DefaultLeadTimeHours      int      `json:"default_lead_time_hours"`
	SameDayCutoffHour         int      `json:"same_day_cutoff_hour"`
	AvailableTimeSlots        []string `json:"available_time_slots"`
	OrderNotificationEmail    string   `json:"order_notification_email"`
	LowStockNotificationEmail string   `json:"low_stock_notification_email"`
	NotifyOnNewOrder          bool     `json:"notify_on_new_order"`
	NotifyOnLowStock          bool     `json:"notify_on_low_stock"`
}

// DefaultSettings returns the settings used until an admin changes them.
func DefaultSettings() BusinessSettings {
	return BusinessSettings{
		StoreName:                 "Beasty Baker",
		StoreTagline:              "Delicious protein-packed treats",
		StoreEmail:                "hello@beastybaker.com",
		DeliveryFee:               500,
		FreeDeliveryThreshold:     5000,
		PickupAvailable:           true,
		DeliveryAvailable:         true,
		DefaultLeadTimeHours:      24,
		SameDayCutoffHour:         12,
		AvailableTimeSlots:        []string{"9:00 AM - 12:00 PM", "12:00 PM - 3:00 PM", "3:00 PM - 6:00 PM"},
		OrderNotificationEmail:    "hello@beastybaker.com",
		LowStockNotificationEmail: "hello@beastybaker.com",
		NotifyOnNewOrder:          true,
		NotifyOnLowStock:          true,
	}
}

// SettingsUpdate is a partial update; nil fields are left unchanged.
type SettingsUpdate struct {
	StoreName                 *string  `json:"store_name"`
	StoreTagline              *string  `json:"store_tagline"`
	StoreEmail                *string  `json:"store_email" validate:"omitempty,email"`
	StorePhone                *string  `json:"store_phone"`
	StoreAddress              *string  `json:"store_address"`
	MinimumOrderValue         *int64   `json:"minimum_order_value" validate:"omitempty,gte=0"`
	DeliveryFee               *int64   `json:"delivery_fee" validate:"omitempty,gte=0"`
	FreeDeliveryThreshold     *int64   `json:"free_delivery_threshold" validate:"omitempty,gte=0"`
	PickupAvailable           *bool    `json:"pickup_available"`
	DeliveryAvailable         *bool    `json:"delivery_available"`
	DefaultLeadTimeHours      *int     `json:"default_lead_time_hours" validate:"omitempty,gte=0"`
	SameDayCutoffHour         *int     `json:"same_day_cutoff_hour" validate:"omitempty,gte=0,lte=23"`
	AvailableTimeSlots        []string `json:"available_time_slots"`
	OrderNotificationEmail    *string  `json:"order_notification_email" validate:"omitempty,email"`
	LowStockNotificationEmail *string  `json:"low_stock_notification_email" validate:"omitempty,email"`
	NotifyOnNewOrder          *bool    `json:"notify_on_new_order"`
	NotifyOnLowStock          *bool    `json:"notify_on_low_stock"`
}

// Apply copies the set fields of u onto s.
func (s *BusinessSettings) Apply(u SettingsUpdate) {
	setString(&s.StoreName, u.StoreName)
	setString(&s.StoreTagline, u.StoreTagline)
	setString(&s.StoreEmail, u.StoreEmail)
	setString(&s.StorePhone, u.StorePhone)
	setString(&s.StoreAddress, u.StoreAddress)
	setValue(&s.MinimumOrderValue, u.MinimumOrderValue)
	setValue(&s.DeliveryFee, u.DeliveryFee)
	setValue(&s.FreeDeliveryThreshold, u.FreeDeliveryThreshold)
	setValue(&s.PickupAvailable, u.PickupAvailable)
	setValue(&s.DeliveryAvailable, u.DeliveryAvailable)
	setValue(&s.DefaultLeadTimeHours, u.DefaultLeadTimeHours)
	setValue(&s.SameDayCutoffHour, u.SameDayCutoffHour)
	if u.AvailableTimeSlots != nil {
		s.AvailableTimeSlots = u.AvailableTimeSlots
	}
	setString(&s.OrderNotificationEmail, u.OrderNotificationEmail)
	setString(&s.LowStockNotificationEmail, u.LowStockNotificationEmail)
	setValue(&s.NotifyOnNewOrder, u.NotifyOnNewOrder)
	setValue(&s.NotifyOnLowStock, u.NotifyOnLowStock)
}

// ShippingCost returns the delivery fee for subtotal, waived at or above
// the free delivery threshold. Pickup is always free.
func (s *BusinessSettings) ShippingCost(subtotal int64, fulfillmentType string) int64 {
	if fulfillmentType == FulfillmentPickup {
		return 0
	}
	if s.FreeDeliveryThreshold > 0 && subtotal >= s.FreeDeliveryThreshold {
		return 0
	}
	return s.DeliveryFee
}

func setString(dst *string, v *string) { setValue(dst, v) }

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
