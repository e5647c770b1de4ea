package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// AddressService manages a customer's saved addresses.
type AddressService struct {
	repo   repository.AddressRepository
	logger *slog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(repo repository.AddressRepository, logger *slog.Logger) *AddressService {
	return &AddressService{repo: repo, logger: logger}
}

// AddressInput holds address fields; nil fields are left unchanged on
// update.
type AddressInput struct {
	AddressType          *string
	IsDefault            *bool
	FirstName            *string
	LastName             *string
	Phone                *string
	AddressLine1         *string
	AddressLine2         *string
	City                 *string
	State                *string
	PostalCode           *string
	Country              *string
	Label                *string
	DeliveryInstructions *string
}

// List returns the user's addresses, optionally of one type.
func (s *AddressService) List(ctx context.Context, userID, addressType string) ([]domain.Address, error) {
	if addressType != "" && !domain.IsValidAddressType(addressType) {
		return nil, apperrors.InvalidInput("Address type must be shipping or billing")
	}
	addresses, err := s.repo.List(ctx, userID, addressType)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

func (s *AddressService) Get(ctx context.Context, userID, id string) (*domain.Address, error) {
	address, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "Address")
	}
	return address, nil
}

// Create saves a new address. The first address of a type becomes the
// default.
func (s *AddressService) Create(ctx context.Context, userID string, input *AddressInput) (*domain.Address, error) {
	now := time.Now().UTC()
	address := &domain.Address{
		ID:          uuid.New().String(),
		UserID:      userID,
		AddressType: domain.AddressTypeShipping,
		Country:     "US",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	input.apply(address)
	if err := validateAddress(address); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	s.logger.InfoContext(ctx, "address created",
		slog.String("address_id", address.ID),
		slog.Bool("is_default", address.IsDefault),
	)
	return address, nil
}

// Update changes one of the user's addresses.
func (s *AddressService) Update(ctx context.Context, userID, id string, input *AddressInput) (*domain.Address, error) {
	address, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	input.apply(address)
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	address.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, notFound(fmt.Errorf("update address: %w", err), "Address")
	}
	return address, nil
}

// Delete removes one of the user's addresses.
func (s *AddressService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return notFound(fmt.Errorf("delete address: %w", err), "Address")
	}
	s.logger.InfoContext(ctx, "address deleted", slog.String("address_id", id))
	return nil
}

// SetDefault makes an address the default of its type.
func (s *AddressService) SetDefault(ctx context.Context, userID, id string) (*domain.Address, error) {
	address, err := s.repo.SetDefault(ctx, userID, id)
	if err != nil {
		return nil, notFound(fmt.Errorf("set default address: %w", err), "Address")
	}
	return address, nil
}

func validateAddress(a *domain.Address) error {
	if !domain.IsValidAddressType(a.AddressType) {
		return apperrors.InvalidInput("Address type must be shipping or billing")
	}
	required := []struct {
		value string
		name  string
	}{
		{a.FirstName, "First name"},
		{a.LastName, "Last name"},
		{a.AddressLine1, "Address line 1"},
		{a.City, "City"},
		{a.State, "State"},
		{a.PostalCode, "Postal code"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperrors.InvalidInputf("%s is required", f.name)
		}
	}
	return nil
}

func (in *AddressInput) apply(a *domain.Address) {
	setField(&a.AddressType, in.AddressType)
	setField(&a.IsDefault, in.IsDefault)
	setField(&a.FirstName, in.FirstName)
	setField(&a.LastName, in.LastName)
	setField(&a.Phone, in.Phone)
	setField(&a.AddressLine1, in.AddressLine1)
	setField(&a.AddressLine2, in.AddressLine2)
	setField(&a.City, in.City)
	setField(&a.State, in.State)
	setField(&a.PostalCode, in.PostalCode)
	if in.Country != nil && *in.Country != "" {
		a.Country = strings.ToUpper(*in.Country)
	}
	setField(&a.Label, in.Label)
	setField(&a.DeliveryInstructions, in.DeliveryInstructions)
}
