package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
)

const dateLayout = "2006-01-02"

// Querier is the subset of pgxpool.Pool used by the repository; pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointment rows and translates storage-layer error
// signals into the domain taxonomy.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool or mock.
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("appointments: querier required")
	}
	return &Repository{db: db}
}

// Create inserts a scheduled appointment. The partial unique index on
// (professional_id, date, start_time) and the booking-rules trigger do the
// actual enforcement; this method only classifies their rejections.
func (r *Repository) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, clinic_id, professional_id, member_id, date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled')
		RETURNING created_at, updated_at
	`,
		appt.ID,
		appt.ClinicID,
		appt.ProfessionalID,
		appt.MemberID,
		appt.Date.Format(dateLayout),
		appt.Start.String(),
		appt.End.String(),
	)
	if err := row.Scan(&appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return nil, translatePgError(err)
	}
	appt.Status = StatusScheduled
	return &appt, nil
}

// Cancel transitions a scheduled appointment to cancelled with an audit
// reason. The row is never deleted.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancel_reason = NULLIF($2, ''),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
	`, id, reason)
	if err != nil {
		return fmt.Errorf("appointments: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BookedStarts returns the taken start times per date for a professional in
// [from, to], truncated to HH:MM. Cancelled and no-show rows do not block
// slots and are excluded here.
func (r *Repository) BookedStarts(ctx context.Context, professionalID uuid.UUID, from, to time.Time) (map[string]schedule.BookedSet, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, start_time
		FROM appointments
		WHERE professional_id = $1
		  AND date BETWEEN $2 AND $3
		  AND status NOT IN ('cancelled', 'no_show')
	`, professionalID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("appointments: booked starts: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]schedule.BookedSet)
	for rows.Next() {
		var (
			date  time.Time
			start pgtype.Time
		)
		if err := rows.Scan(&date, &start); err != nil {
			return nil, fmt.Errorf("appointments: booked starts: %w", err)
		}
		key := date.Format(dateLayout)
		if booked[key] == nil {
			booked[key] = make(schedule.BookedSet)
		}
		booked[key][timeOfDayFromPg(start)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: booked starts: %w", err)
	}
	return booked, nil
}

// ListUpcomingByMember returns the member's non-cancelled appointments from
// the given date forward, earliest first.
func (r *Repository) ListUpcomingByMember(ctx context.Context, memberID uuid.UUID, from time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.clinic_id, a.professional_id, a.member_id, a.date, a.start_time, a.end_time,
		       a.status, a.cancel_reason, a.created_at, a.updated_at, p.name
		FROM appointments a
		JOIN professionals p ON p.id = a.professional_id
		WHERE a.member_id = $1
		  AND a.date >= $2
		  AND a.status = 'scheduled'
		ORDER BY a.date, a.start_time
	`, memberID, from.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("appointments: list upcoming: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		var (
			a            Appointment
			start, end   pgtype.Time
			cancelReason *string
		)
		if err := rows.Scan(
			&a.ID,
			&a.ClinicID,
			&a.ProfessionalID,
			&a.MemberID,
			&a.Date,
			&start,
			&end,
			&a.Status,
			&cancelReason,
			&a.CreatedAt,
			&a.UpdatedAt,
			&a.ProfessionalName,
		); err != nil {
			return nil, fmt.Errorf("appointments: list upcoming: %w", err)
		}
		a.Start = timeOfDayFromPg(start)
		a.End = timeOfDayFromPg(end)
		if cancelReason != nil {
			a.CancelReason = *cancelReason
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list upcoming: %w", err)
	}
	return result, nil
}

func timeOfDayFromPg(t pgtype.Time) schedule.TimeOfDay {
	return schedule.TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// translatePgError maps Postgres rejections onto the domain taxonomy. The
// unique_violation comes from the partial slot index; P0001 raises come from
// the booking-rules trigger and carry their classification in the message.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("appointments: create: %w", err)
	}
	switch {
	case pgErr.Code == "23505":
		return ErrSlotTaken
	case pgErr.Code == "P0001" && strings.Contains(pgErr.Message, "booking_limit_exceeded"):
		return ErrBookingLimitExceeded
	case pgErr.Code == "P0001" && strings.Contains(pgErr.Message, "membership_expired"):
		return ErrMembershipExpired
	default:
		return fmt.Errorf("appointments: create: %w", err)
	}
}
