package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"livestock-registry/internal/domain/kraals"
)

type KraalsRepo struct {
	db *sql.DB
}

func NewKraalsRepo(db *sql.DB) *KraalsRepo {
	return &KraalsRepo{db: db}
}

func (r *KraalsRepo) Create(ctx context.Context, k kraals.Kraal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kraals (
			id, owner_user_id,
			name, description, capacity, location_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		k.ID,
		k.OwnerUserID,
		k.Name,
		k.Description,
		k.Capacity,
		k.LocationID,
		k.CreatedAt,
		k.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kraals.ErrConflict
		}
		return fmt.Errorf("kraals insert: %w", err)
	}
	return nil
}

func (r *KraalsRepo) Update(ctx context.Context, k kraals.Kraal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE kraals
		SET
			name = $2,
			description = $3,
			capacity = $4,
			location_id = $5,
			updated_at = $6
		WHERE id = $1
	`,
		k.ID,
		k.Name,
		k.Description,
		k.Capacity,
		k.LocationID,
		k.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return kraals.ErrConflict
		}
		return fmt.Errorf("kraals update: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kraals.ErrNotFound
	}
	return nil
}

func (r *KraalsRepo) GetByID(ctx context.Context, id string) (kraals.Kraal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return kraals.Kraal{}, kraals.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, owner_user_id,
			name, description, capacity, location_id,
			created_at, updated_at
		FROM kraals
		WHERE id = $1
	`, id)

	var k kraals.Kraal
	var loc sql.NullString
	if err := row.Scan(
		&k.ID,
		&k.OwnerUserID,
		&k.Name,
		&k.Description,
		&k.Capacity,
		&loc,
		&k.CreatedAt,
		&k.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return kraals.Kraal{}, kraals.ErrNotFound
		}
		return kraals.Kraal{}, err
	}

	if loc.Valid {
		v := loc.String
		k.LocationID = &v
	}
	return k, nil
}

func (r *KraalsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]kraals.Kraal, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, owner_user_id,
			name, description, capacity, location_id,
			created_at, updated_at
		FROM kraals
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]kraals.Kraal, 0)
	for rows.Next() {
		var k kraals.Kraal
		var loc sql.NullString
		if err := rows.Scan(
			&k.ID,
			&k.OwnerUserID,
			&k.Name,
			&k.Description,
			&k.Capacity,
			&loc,
			&k.CreatedAt,
			&k.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if loc.Valid {
			v := loc.String
			k.LocationID = &v
		}
		out = append(out, k)
	}

	return out, rows.Err()
}

func (r *KraalsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kraals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("kraals delete: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return kraals.ErrNotFound
	}
	return nil
}
