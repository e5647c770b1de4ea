package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// SettingsService reads and edits the business settings.
type SettingsService struct {
	repo   repository.SettingsRepository
	logger *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.BusinessSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// Update applies a partial update.
func (s *SettingsService) Update(ctx context.Context, update domain.SettingsUpdate) (*domain.BusinessSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	settings.Apply(update)
	if !settings.PickupAvailable && !settings.DeliveryAvailable {
		return nil, apperrors.InvalidInput("At least one of pickup or delivery must be available")
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.logger.InfoContext(ctx, "business settings updated")
	return settings, nil
}

// Reset restores the default settings.
func (s *SettingsService) Reset(ctx context.Context) (*domain.BusinessSettings, error) {
	settings := domain.DefaultSettings()
	if err := s.repo.Save(ctx, &settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.logger.InfoContext(ctx, "business settings reset to defaults")
	return &settings, nil
}

// current loads settings for a read path, falling back to the defaults
// when the store is unreachable.
func current(ctx context.Context, repo repository.SettingsRepository, logger *slog.Logger) domain.BusinessSettings {
	settings, err := repo.Get(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load business settings, using defaults", errAttr(err))
		return domain.DefaultSettings()
	}
	return *settings
}
