package professionals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound indicates no professional matched the lookup.
var ErrNotFound = errors.New("professionals: not found")

// Querier is the subset of pgxpool.Pool used by the repository; pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads professional rows and their weekly templates.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool or mock.
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("professionals: querier required")
	}
	return &Repository{db: db}
}

const professionalColumns = `id, clinic_id, name, specialty, active, weekly_schedule, slot_minutes, created_at, updated_at`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var (
		p         Professional
		specialty *string
		weeklyRaw []byte
	)
	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.Name,
		&specialty,
		&p.Active,
		&weeklyRaw,
		&p.SlotMinutes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if specialty != nil {
		p.Specialty = *specialty
	}
	if len(weeklyRaw) > 0 {
		if err := json.Unmarshal(weeklyRaw, &p.Weekly); err != nil {
			return nil, fmt.Errorf("professionals: decode weekly schedule for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// GetByID loads a single professional.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE id = $1
	`, id)
	return scanProfessional(row)
}

// List returns the clinic's active professionals, optionally filtered by
// specialty.
func (r *Repository) List(ctx context.Context, clinicID uuid.UUID, specialty string) ([]Professional, error) {
	query := `
		SELECT ` + professionalColumns + `
		FROM professionals
		WHERE clinic_id = $1 AND active
	`
	args := []any{clinicID}
	if specialty != "" {
		query += ` AND specialty ILIKE $2`
		args = append(args, "%"+specialty+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("professionals: list: %w", err)
	}
	defer rows.Close()

	var result []Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("professionals: list: %w", err)
	}
	return result, nil
}

// SearchByName resolves a professional from a partial name, case-insensitive.
// When the fragment is ambiguous the first match in name order wins; callers
// echo the resolved name back so the conversation can correct course.
func (r *Repository) SearchByName(ctx context.Context, clinicID uuid.UUID, fragment string) (*Professional, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+professionalColumns+`
		FROM professionals
		WHERE clinic_id = $1 AND active AND name ILIKE $2
		ORDER BY name
		LIMIT 1
	`, clinicID, "%"+fragment+"%")
	return scanProfessional(row)
}
