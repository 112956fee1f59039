package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"livestock-registry/internal/domain/assignments"
)

type AssignmentsRepo struct {
	db *sql.DB
}

func NewAssignmentsRepo(db *sql.DB) *AssignmentsRepo {
	return &AssignmentsRepo{db: db}
}

// Open inserta una assignment abierta. El índice parcial
// cattle_kraal_assignments_one_open_idx garantiza a lo sumo una abierta
// por animal; si dos requests corren a la vez, el perdedor recibe 23505.
func (r *AssignmentsRepo) Open(ctx context.Context, a assignments.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cattle_kraal_assignments (
			id, cattle_id, kraal_id, start_date, end_date
		) VALUES ($1,$2,$3,$4,NULL)
	`,
		a.ID,
		a.CattleID,
		a.KraalID,
		a.StartDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return assignments.ErrConflict
		}
		return fmt.Errorf("assignments insert: %w", err)
	}
	return nil
}

// CloseAndOpen ejecuta cierre + apertura en UNA transacción: o pasan las
// dos cosas o ninguna. El WHERE end_date IS NULL evita cerrar dos veces
// el mismo intervalo bajo concurrencia.
func (r *AssignmentsRepo) CloseAndOpen(ctx context.Context, closeID string, closedAt time.Time, next assignments.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("assignments begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE cattle_kraal_assignments
		SET end_date = $2
		WHERE id = $1 AND end_date IS NULL
	`, closeID, closedAt)
	if err != nil {
		return fmt.Errorf("assignments close: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Otro request ya cerró este intervalo.
		return assignments.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cattle_kraal_assignments (
			id, cattle_id, kraal_id, start_date, end_date
		) VALUES ($1,$2,$3,$4,NULL)
	`,
		next.ID,
		next.CattleID,
		next.KraalID,
		next.StartDate,
	); err != nil {
		if isUniqueViolation(err) {
			return assignments.ErrConflict
		}
		return fmt.Errorf("assignments reopen: %w", err)
	}

	return tx.Commit()
}

func (r *AssignmentsRepo) GetOpenByCattle(ctx context.Context, cattleID string) (assignments.Assignment, error) {
	cattleID = strings.TrimSpace(cattleID)
	if cattleID == "" {
		return assignments.Assignment{}, assignments.ErrNoOpen
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, cattle_id, kraal_id, start_date, end_date
		FROM cattle_kraal_assignments
		WHERE cattle_id = $1 AND end_date IS NULL
	`, cattleID)

	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assignments.Assignment{}, assignments.ErrNoOpen
		}
		return assignments.Assignment{}, err
	}
	return a, nil
}

func (r *AssignmentsRepo) ListByCattle(ctx context.Context, cattleID string) ([]assignments.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cattle_id, kraal_id, start_date, end_date
		FROM cattle_kraal_assignments
		WHERE cattle_id = $1
		ORDER BY start_date ASC
	`, cattleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]assignments.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentsRepo) HasOpenByKraal(ctx context.Context, kraalID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cattle_kraal_assignments
			WHERE kraal_id = $1 AND end_date IS NULL
		)
	`, kraalID).Scan(&exists)
	return exists, err
}

func (r *AssignmentsRepo) DeleteByCattle(ctx context.Context, cattleID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cattle_kraal_assignments WHERE cattle_id = $1`, cattleID)
	if err != nil {
		return fmt.Errorf("assignments delete: %w", err)
	}
	return nil
}

func scanAssignment(row rowScanner) (assignments.Assignment, error) {
	var a assignments.Assignment
	var end sql.NullTime
	if err := row.Scan(&a.ID, &a.CattleID, &a.KraalID, &a.StartDate, &end); err != nil {
		return assignments.Assignment{}, err
	}
	if end.Valid {
		t := end.Time
		a.EndDate = &t
	}
	return a, nil
}
