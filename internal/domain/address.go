package domain

import "time"

// Address types.
const (
	AddressTypeShipping = "shipping"
	AddressTypeBilling  = "billing"
)

// Address is a saved customer address.
type Address struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	AddressType          string    `json:"address_type"`
	IsDefault            bool      `json:"is_default"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Phone                string    `json:"phone,omitempty"`
	AddressLine1         string    `json:"address_line1"`
	AddressLine2         string    `json:"address_line2,omitempty"`
	City                 string    `json:"city"`
	State                string    `json:"state"`
	PostalCode           string    `json:"postal_code"`
	Country              string    `json:"country"`
	Label                string    `json:"label,omitempty"`
	DeliveryInstructions string    `json:"delivery_instructions,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Snapshot copies the postal fields into the form stored on an order.
func (a *Address) Snapshot() *AddressSnapshot {
	return &AddressSnapshot{
		FirstName:            a.FirstName,
		LastName:             a.LastName,
		Phone:                a.Phone,
		AddressLine1:         a.AddressLine1,
		AddressLine2:         a.AddressLine2,
		City:                 a.City,
		State:                a.State,
		PostalCode:           a.PostalCode,
		Country:              a.Country,
		DeliveryInstructions: a.DeliveryInstructions,
	}
}

// AddressSnapshot is an address frozen onto an order.
type AddressSnapshot struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Phone                string `json:"phone,omitempty"`
	AddressLine1         string `json:"address_line1"`
	AddressLine2         string `json:"address_line2,omitempty"`
	City                 string `json:"city"`
	State                string `json:"state"`
	PostalCode           string `json:"postal_code"`
	Country              string `json:"country"`
	DeliveryInstructions string `json:"delivery_instructions,omitempty"`
}

// IsValidAddressType checks an address type string.
func IsValidAddressType(t string) bool {
	return t == AddressTypeShipping || t == AddressTypeBilling
}
