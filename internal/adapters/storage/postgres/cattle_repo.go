package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"livestock-registry/internal/domain/cattle"
)

type CattleRepo struct {
	db *sql.DB
}

func NewCattleRepo(db *sql.DB) *CattleRepo {
	return &CattleRepo{db: db}
}

const cattleColumns = `
	id, owner_user_id,
	name, tag_number, breed, gender, is_ox,
	date_of_birth, health_status, vaccination_records, main_image_url,
	sire_id, dam_id,
	created_at, updated_at
`

func (r *CattleRepo) Create(ctx context.Context, c cattle.Cattle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cattle (`+cattleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		c.ID,
		c.OwnerUserID,
		c.Name,
		toNullString(c.TagNumber), // "" => NULL para que el UNIQUE solo aplique con caravana
		string(c.Breed),
		string(c.Gender),
		c.IsOx,
		toNullDate(c.DateOfBirth),
		string(c.HealthStatus),
		c.VaccinationRecords,
		c.MainImageURL,
		c.SireID,
		c.DamID,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cattle.ErrConflict
		}
		return fmt.Errorf("cattle insert: %w", err)
	}
	return nil
}

func (r *CattleRepo) Update(ctx context.Context, c cattle.Cattle) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cattle
		SET
			name = $2,
			tag_number = $3,
			breed = $4,
			gender = $5,
			is_ox = $6,
			date_of_birth = $7,
			health_status = $8,
			vaccination_records = $9,
			main_image_url = $10,
			sire_id = $11,
			dam_id = $12,
			updated_at = $13
		WHERE id = $1
	`,
		c.ID,
		c.Name,
		toNullString(c.TagNumber),
		string(c.Breed),
		string(c.Gender),
		c.IsOx,
		toNullDate(c.DateOfBirth),
		string(c.HealthStatus),
		c.VaccinationRecords,
		c.MainImageURL,
		c.SireID,
		c.DamID,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cattle.ErrConflict
		}
		return fmt.Errorf("cattle update: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cattle.ErrNotFound
	}
	return nil
}

func (r *CattleRepo) GetByID(ctx context.Context, id string) (cattle.Cattle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return cattle.Cattle{}, cattle.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+cattleColumns+`
		FROM cattle
		WHERE id = $1
	`, id)

	c, err := scanCattle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cattle.Cattle{}, cattle.ErrNotFound
		}
		return cattle.Cattle{}, err
	}
	return c, nil
}

func (r *CattleRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]cattle.Cattle, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cattleColumns+`
		FROM cattle
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCattle(rows)
}

func (r *CattleRepo) ListOffspring(ctx context.Context, parentID string, role cattle.ParentRole, f cattle.OffspringFilter) ([]cattle.Cattle, error) {
	col, err := parentColumn(role)
	if err != nil {
		return nil, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = cattle.DefaultPerPage
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + cattleColumns + ` FROM cattle WHERE ` + col + ` = $1`)

	args := []any{parentID}
	argN := 2

	if q := strings.TrimSpace(f.Query); q != "" {
		sb.WriteString(fmt.Sprintf(" AND name ILIKE $%d", argN))
		args = append(args, "%"+q+"%")
		argN++
	}

	// Orden estable para que la paginación sea determinística.
	sb.WriteString(" ORDER BY created_at ASC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1))
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCattle(rows)
}

func (r *CattleRepo) CountOffspring(ctx context.Context, parentID string, role cattle.ParentRole, query string) (int, error) {
	col, err := parentColumn(role)
	if err != nil {
		return 0, err
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT COUNT(*) FROM cattle WHERE ` + col + ` = $1`)

	args := []any{parentID}
	if q := strings.TrimSpace(query); q != "" {
		sb.WriteString(" AND name ILIKE $2")
		args = append(args, "%"+q+"%")
	}

	var n int
	if err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *CattleRepo) ClearParentRefs(ctx context.Context, parentID string) error {
	// El schema también tiene ON DELETE SET NULL; esto mantiene el
	// contrato explícito e igual en ambos adapters.
	if _, err := r.db.ExecContext(ctx,
		`UPDATE cattle SET sire_id = NULL WHERE sire_id = $1`, parentID); err != nil {
		return fmt.Errorf("clear sire refs: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE cattle SET dam_id = NULL WHERE dam_id = $1`, parentID); err != nil {
		return fmt.Errorf("clear dam refs: %w", err)
	}
	return nil
}

func (r *CattleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cattle WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cattle delete: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cattle.ErrNotFound
	}
	return nil
}

func parentColumn(role cattle.ParentRole) (string, error) {
	switch role {
	case cattle.RoleSire:
		return "sire_id", nil
	case cattle.RoleDam:
		return "dam_id", nil
	default:
		return "", fmt.Errorf("unknown parent role %q", role)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCattle(row rowScanner) (cattle.Cattle, error) {
	var c cattle.Cattle
	var tag sql.NullString
	var dob sql.NullTime
	var breed, gender, health string
	var sire, dam sql.NullString

	if err := row.Scan(
		&c.ID,
		&c.OwnerUserID,
		&c.Name,
		&tag,
		&breed,
		&gender,
		&c.IsOx,
		&dob,
		&health,
		&c.VaccinationRecords,
		&c.MainImageURL,
		&sire,
		&dam,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return cattle.Cattle{}, err
	}

	c.Breed = cattle.Breed(breed)
	c.Gender = cattle.Gender(gender)
	c.HealthStatus = cattle.HealthStatus(health)
	if tag.Valid {
		c.TagNumber = tag.String
	}
	if dob.Valid {
		t := dob.Time
		c.DateOfBirth = &t
	}
	if sire.Valid {
		v := sire.String
		c.SireID = &v
	}
	if dam.Valid {
		v := dam.String
		c.DamID = &v
	}
	return c, nil
}

func collectCattle(rows *sql.Rows) ([]cattle.Cattle, error) {
	out := make([]cattle.Cattle, 0)
	for rows.Next() {
		c, err := scanCattle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
