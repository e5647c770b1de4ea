package domain

import "time"

// OrderStatusCount is the number of orders in one status.
type OrderStatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DashboardStats are the headline numbers of the back office dashboard.
// Revenue counts paid orders only. RevenueGrowthPercent compares this month
// with the whole previous month and is nil when there was no revenue then.
type DashboardStats struct {
	OrdersToday          int                `json:"orders_today"`
	OrdersTodayByStatus  []OrderStatusCount `json:"orders_today_by_status"`
	RevenueToday         int64              `json:"revenue_today"`
	RevenueThisWeek      int64              `json:"revenue_this_week"`
	RevenueThisMonth     int64              `json:"revenue_this_month"`
	RevenueGrowthPercent *float64           `json:"revenue_growth_percent"`
	LowStockCount        int                `json:"low_stock_count"`
	OutOfStockCount      int                `json:"out_of_stock_count"`
	PendingReviewsCount  int                `json:"pending_reviews_count"`
	PendingOrdersCount   int                `json:"pending_orders_count"`
}

// TopProduct is a best selling product over a period.
type TopProduct struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	QuantitySold int    `json:"quantity_sold"`
	Revenue      int64  `json:"revenue"`
	ImageURL     string `json:"image_url,omitempty"`
}

// LowStockProduct is a tracked product at or below its threshold.
type LowStockProduct struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SKU               string `json:"sku"`
	StockQuantity     int    `json:"stock_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	ImageURL          string `json:"image_url,omitempty"`
}

// RevenueByPeriod is one bucket of the sales chart. Period is YYYY-MM-DD.
type RevenueByPeriod struct {
	Period     string `json:"period"`
	Revenue    int64  `json:"revenue"`
	OrderCount int    `json:"order_count"`
}

// SalesAnalytics summarises paid orders between two dates.
type SalesAnalytics struct {
	TotalRevenue         int64             `json:"total_revenue"`
	TotalOrders          int               `json:"total_orders"`
	AverageOrderValue    int64             `json:"average_order_value"`
	RevenueByPeriod      []RevenueByPeriod `json:"revenue_by_period"`
	TopProducts          []TopProduct      `json:"top_products"`
	FulfillmentBreakdown map[string]int    `json:"fulfillment_breakdown"`
}

// RecentOrder is the compact order row shown on the dashboard and on the
// customer detail page.
type RecentOrder struct {
	ID              string     `json:"id"`
	OrderNumber     string     `json:"order_number"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	Total           int64      `json:"total"`
	ItemCount       int        `json:"item_count"`
	FulfillmentType string     `json:"fulfillment_type"`
	RequestedDate   *time.Time `json:"requested_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// DashboardWidgets bundles everything the dashboard home page shows.
type DashboardWidgets struct {
	Stats          *DashboardStats   `json:"stats"`
	TopProducts    []TopProduct      `json:"top_products"`
	LowStockAlerts []LowStockProduct `json:"low_stock_alerts"`
	RecentOrders   []RecentOrder     `json:"recent_orders"`
}

// StockUpdate sets the stock of one product.
type StockUpdate struct {
	ProductID   string `json:"product_id" validate:"required,uuid"`
	NewQuantity int    `json:"new_quantity" validate:"gte=0"`
}

// BulkStockResult reports a bulk stock update.
type BulkStockResult struct {
	UpdatedCount int      `json:"updated_count"`
	Errors       []string `json:"errors"`
}

// BulkStatusResult reports a bulk order status change.
type BulkStatusResult struct {
	UpdatedCount int      `json:"updated_count"`
	Errors       []string `json:"errors"`
}

// CustomerSummary is a customer row in the back office with order stats
// over paid orders.
type CustomerSummary struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	OrderCount    int        `json:"order_count"`
	TotalSpent    int64      `json:"total_spent"`
	LastOrderDate *time.Time `json:"last_order_date,omitempty"`
}

// CustomerDetail extends CustomerSummary with the customer's latest orders.
type CustomerDetail struct {
	CustomerSummary
	AverageOrderValue int64         `json:"average_order_value"`
	RecentOrders      []RecentOrder `json:"recent_orders"`
}
