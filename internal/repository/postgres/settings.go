package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
)

const businessSettingsKey = "business"

// SettingsRepository stores the business settings as one JSONB document.
type SettingsRepository struct {
	pool database.DBTX
}

// NewSettingsRepository creates a new PostgreSQL-backed settings repository.
func NewSettingsRepository(pool database.DBTX) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the stored settings. Keys missing from the stored document
// keep their default values.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.BusinessSettings, error) {
	settings := domain.DefaultSettings()

	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM business_settings WHERE key = $1`, businessSettingsKey,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &settings, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

// Save upserts the settings document.
func (r *SettingsRepository) Save(ctx context.Context, settings *domain.BusinessSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO business_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		businessSettingsKey, raw,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
