package patients

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound indicates no member matched the lookup.
var ErrNotFound = errors.New("patients: member not found")

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads member rows.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool or mock.
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("patients: querier required")
	}
	return &Repository{db: db}
}

// NormalizeCPF strips formatting so "123.456.789-09" and "12345678909"
// resolve the same member.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const memberColumns = `id, clinic_id, name, cpf, phone, monthly_limit, membership_expires_at, created_at`

func scanMember(row pgx.Row) (*Member, error) {
	var (
		m     Member
		phone *string
	)
	err := row.Scan(
		&m.ID,
		&m.ClinicID,
		&m.Name,
		&m.CPF,
		&phone,
		&m.MonthlyLimit,
		&m.MembershipExpiresAt,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if phone != nil {
		m.Phone = *phone
	}
	return &m, nil
}

// FindByCPF looks a member up by national ID within the clinic.
func (r *Repository) FindByCPF(ctx context.Context, clinicID uuid.UUID, cpf string) (*Member, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE clinic_id = $1 AND cpf = $2
	`, clinicID, NormalizeCPF(cpf))
	return scanMember(row)
}

// GetByID loads a member by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE id = $1
	`, id)
	return scanMember(row)
}
