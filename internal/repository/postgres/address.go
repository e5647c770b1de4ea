package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const addressColumns = `id, user_id, address_type, is_default, first_name, last_name, phone,
	address_line1, address_line2, city, state, postal_code, country, label,
	delivery_instructions, created_at, updated_at`

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	pool database.DBTX
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool database.DBTX) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// List returns the user's addresses, optionally of one type.
func (r *AddressRepository) List(ctx context.Context, userID, addressType string) ([]domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1`
	args := []any{userID}
	if addressType != "" {
		query += ` AND address_type = $2`
		args = append(args, addressType)
	}
	query += ` ORDER BY is_default DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate address rows: %w", err)
	}
	return addresses, nil
}

// GetByID retrieves one of the user's addresses.
func (r *AddressRepository) GetByID(ctx context.Context, userID, id string) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`
	a, err := scanAddress(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new address, making it the default when it is the first
// of its type or when requested.
func (r *AddressRepository) Create(ctx context.Context, a *domain.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM addresses WHERE user_id = $1 AND address_type = $2)`,
		a.UserID, a.AddressType,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check existing addresses: %w", err)
	}
	if !exists {
		a.IsDefault = true
	}

	if a.IsDefault {
		if err := unsetDefault(ctx, tx, a.UserID, a.AddressType, a.ID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	if _, err := tx.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.AddressType,
		a.IsDefault,
		a.FirstName,
		a.LastName,
		a.Phone,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PostalCode,
		a.Country,
		a.Label,
		a.DeliveryInstructions,
		a.CreatedAt,
		a.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert address: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Update modifies an existing address of the user.
func (r *AddressRepository) Update(ctx context.Context, a *domain.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if a.IsDefault {
		if err := unsetDefault(ctx, tx, a.UserID, a.AddressType, a.ID); err != nil {
			return err
		}
	}

	query := `
		UPDATE addresses
		SET address_type = $1, is_default = $2, first_name = $3, last_name = $4, phone = $5,
		    address_line1 = $6, address_line2 = $7, city = $8, state = $9, postal_code = $10,
		    country = $11, label = $12, delivery_instructions = $13, updated_at = $14
		WHERE id = $15 AND user_id = $16`

	ct, err := tx.Exec(ctx, query,
		a.AddressType,
		a.IsDefault,
		a.FirstName,
		a.LastName,
		a.Phone,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PostalCode,
		a.Country,
		a.Label,
		a.DeliveryInstructions,
		a.UpdatedAt,
		a.ID,
		a.UserID,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes an address and promotes a replacement default.
func (r *AddressRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		addressType string
		wasDefault  bool
	)
	err = tx.QueryRow(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2 RETURNING address_type, is_default`,
		id, userID,
	).Scan(&addressType, &wasDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete address: %w", err)
	}

	if wasDefault {
		query := `
			UPDATE addresses SET is_default = TRUE
			WHERE id = (
				SELECT id FROM addresses
				WHERE user_id = $1 AND address_type = $2
				ORDER BY created_at DESC
				LIMIT 1
			)`
		if _, err := tx.Exec(ctx, query, userID, addressType); err != nil {
			return fmt.Errorf("promote default address: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SetDefault makes the address the default of its type.
func (r *AddressRepository) SetDefault(ctx context.Context, userID, id string) (*domain.Address, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2 FOR UPDATE`
	a, err := scanAddress(tx.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, err
	}

	if err := unsetDefault(ctx, tx, userID, a.AddressType, id); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, id,
	); err != nil {
		return nil, fmt.Errorf("set default address: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	a.IsDefault = true
	return a, nil
}

func unsetDefault(ctx context.Context, tx pgx.Tx, userID, addressType, exceptID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = FALSE
		 WHERE user_id = $1 AND address_type = $2 AND is_default AND id <> $3`,
		userID, addressType, exceptID,
	)
	if err != nil {
		return fmt.Errorf("unset default address: %w", err)
	}
	return nil
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.AddressType,
		&a.IsDefault,
		&a.FirstName,
		&a.LastName,
		&a.Phone,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Country,
		&a.Label,
		&a.DeliveryInstructions,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return &a, nil
}
