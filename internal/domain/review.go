package domain

import "time"

// Review is a customer's rating of a product.
type Review struct {
	ID                 string     `json:"id"`
	ProductID          string     `json:"product_id"`
	UserID             string     `json:"user_id"`
	OrderItemID        *string    `json:"order_item_id,omitempty"`
	Rating             int        `json:"rating"`
	Title              string     `json:"title,omitempty"`
	Content            string     `json:"content,omitempty"`
	IsVerifiedPurchase bool       `json:"is_verified_purchase"`
	IsApproved         bool       `json:"is_approved"`
	IsFeatured         bool       `json:"is_featured"`
	HelpfulCount       int        `json:"helpful_count"`
	Response           string     `json:"response,omitempty"`
	ResponseAt         *time.Time `json:"response_at,omitempty"`
	ReviewerName       string     `json:"reviewer_name,omitempty"`
	ProductName        string     `json:"product_name,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ReviewSummary aggregates approved reviews of a product.
type ReviewSummary struct {
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// NewReviewSummary fills the distribution with all five star buckets.
func NewReviewSummary() *ReviewSummary {
	return &ReviewSummary{RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
}

// HelpfulResult is returned after a helpful vote.
type HelpfulResult struct {
	HelpfulCount int  `json:"helpful_count"`
	Voted        bool `json:"voted"`
}
