package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
)

func TestSettingsRepository_Get_DefaultsWhenMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewSettingsRepository(mock)

	mock.ExpectQuery("SELECT value FROM business_settings").
		WithArgs("business").
		WillReturnError(pgx.ErrNoRows)

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), *s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_Get_MergesOntoDefaults(t *testing.T) {
	mock := newMock(t)
	repo := NewSettingsRepository(mock)

	mock.ExpectQuery("SELECT value FROM business_settings").
		WithArgs("business").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).
			AddRow([]byte(`{"store_name":"Beasty Bakery","delivery_fee":750}`)))

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Beasty Bakery", s.StoreName)
	assert.Equal(t, int64(750), s.DeliveryFee)
	assert.Equal(t, int64(5000), s.FreeDeliveryThreshold)
	assert.Equal(t, "Delicious protein-packed treats", s.StoreTagline)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_Save(t *testing.T) {
	mock := newMock(t)
	repo := NewSettingsRepository(mock)
	s := domain.DefaultSettings()

	mock.ExpectExec("INSERT INTO business_settings").
		WithArgs("business", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Save(context.Background(), &s))
	assert.NoError(t, mock.ExpectationsWereMet())
}
