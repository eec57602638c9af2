package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tecmax-dev/sisvida-sub005/internal/professionals"
	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

var apptTracer = otel.Tracer("sisvida.internal.appointments")

// ProfessionalDirectory resolves professionals for booking and availability.
type ProfessionalDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*professionals.Professional, error)
	SearchByName(ctx context.Context, clinicID uuid.UUID, fragment string) (*professionals.Professional, error)
	List(ctx context.Context, clinicID uuid.UUID, specialty string) ([]professionals.Professional, error)
}

// Store is the persistence surface the service needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) error
	BookedStarts(ctx context.Context, professionalID uuid.UUID, from, to time.Time) (map[string]schedule.BookedSet, error)
	ListUpcomingByMember(ctx context.Context, memberID uuid.UUID, from time.Time) ([]Appointment, error)
}

// Service is the booking mutator plus the availability queries built on the
// pure calculator. It performs no in-application locking: concurrent
// double-bookings are resolved by the storage constraint and surface here as
// ErrSlotTaken.
type Service struct {
	store     Store
	directory ProfessionalDirectory
	calc      schedule.Calculator
	logger    *logging.Logger
}

// NewService constructs the scheduling service.
func NewService(store Store, directory ProfessionalDirectory, calc schedule.Calculator, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if directory == nil {
		panic("appointments: professional directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		calc:      calc,
		logger:    logger,
	}
}

// Horizon reports how many days forward OpenDates scans.
func (s *Service) Horizon() int {
	return s.calc.HorizonDays
}

// ListProfessionals returns the clinic's active professionals.
func (s *Service) ListProfessionals(ctx context.Context, clinicID uuid.UUID, specialty string) ([]professionals.Professional, error) {
	return s.directory.List(ctx, clinicID, specialty)
}

// OpenDates scans the horizon for dates where the named professional has at
// least one free slot. The professional the name resolved to is returned so
// callers can echo it back.
func (s *Service) OpenDates(ctx context.Context, clinicID uuid.UUID, professionalName string, now time.Time) (*professionals.Professional, []schedule.DateAvailability, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.open_dates")
	defer span.End()

	prof, err := s.directory.SearchByName(ctx, clinicID, professionalName)
	if err != nil {
		return nil, nil, err
	}
	dates, err := s.OpenDatesFor(ctx, prof, now)
	return prof, dates, err
}

// OpenDatesFor is OpenDates for an already resolved professional.
func (s *Service) OpenDatesFor(ctx context.Context, prof *professionals.Professional, now time.Time) ([]schedule.DateAvailability, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.open_dates_for")
	defer span.End()
	span.SetAttributes(attribute.String("sisvida.professional_id", prof.ID.String()))

	from := now
	to := now.AddDate(0, 0, s.calc.HorizonDays)
	booked, err := s.store.BookedStarts(ctx, prof.ID, from, to)
	if err != nil {
		return nil, err
	}

	lookup := func(date time.Time) (schedule.BookedSet, error) {
		return booked[date.Format(dateLayout)], nil
	}
	return s.calc.OpenDates(prof.Weekly, prof.SlotMinutes, lookup, now)
}

// OpenTimes returns the free start times for the named professional on one
// date.
func (s *Service) OpenTimes(ctx context.Context, clinicID uuid.UUID, professionalName string, date, now time.Time) (*professionals.Professional, []schedule.TimeOfDay, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.open_times")
	defer span.End()

	prof, err := s.directory.SearchByName(ctx, clinicID, professionalName)
	if err != nil {
		return nil, nil, err
	}
	times, err := s.OpenTimesFor(ctx, prof, date, now)
	return prof, times, err
}

// OpenTimesFor is OpenTimes for an already resolved professional.
func (s *Service) OpenTimesFor(ctx context.Context, prof *professionals.Professional, date, now time.Time) ([]schedule.TimeOfDay, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.open_times_for")
	defer span.End()
	span.SetAttributes(
		attribute.String("sisvida.professional_id", prof.ID.String()),
		attribute.String("sisvida.date", date.Format(dateLayout)),
	)

	booked, err := s.store.BookedStarts(ctx, prof.ID, date, date)
	if err != nil {
		return nil, err
	}
	return s.calc.OpenTimes(prof.Weekly, prof.SlotMinutes, date, booked[date.Format(dateLayout)], now)
}

// GetProfessional loads a professional by id.
func (s *Service) GetProfessional(ctx context.Context, id uuid.UUID) (*professionals.Professional, error) {
	return s.directory.GetByID(ctx, id)
}

// Book creates a scheduled appointment for the member with the named
// professional. End time is derived from the professional's slot duration.
// Constraint rejections surface as taxonomy errors (ErrSlotTaken,
// ErrBookingLimitExceeded, ErrMembershipExpired).
func (s *Service) Book(ctx context.Context, clinicID, memberID uuid.UUID, professionalName string, date time.Time, start schedule.TimeOfDay) (*Appointment, error) {
	ctx, span := apptTracer.Start(ctx, "appointments.book")
	defer span.End()

	prof, err := s.directory.SearchByName(ctx, clinicID, professionalName)
	if err != nil {
		return nil, err
	}

	slotMinutes := prof.SlotMinutes
	if slotMinutes <= 0 {
		slotMinutes = 30
	}

	appt, err := s.store.Create(ctx, Appointment{
		ID:             uuid.New(),
		ClinicID:       clinicID,
		ProfessionalID: prof.ID,
		MemberID:       memberID,
		Date:           date,
		Start:          start,
		End:            start.Add(time.Duration(slotMinutes) * time.Minute),
		Status:         StatusScheduled,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	appt.ProfessionalName = prof.Name

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"professional_id", prof.ID,
		"member_id", memberID,
		"date", date.Format(dateLayout),
		"start", start.String(),
	)
	return appt, nil
}

// Cancel transitions an appointment to cancelled with an audit reason.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	ctx, span := apptTracer.Start(ctx, "appointments.cancel")
	defer span.End()

	if err := s.store.Cancel(ctx, id, reason); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id, "reason", reason)
	return nil
}

// UpcomingForMember lists the member's scheduled appointments from now on.
func (s *Service) UpcomingForMember(ctx context.Context, memberID uuid.UUID, now time.Time) ([]Appointment, error) {
	return s.store.ListUpcomingByMember(ctx, memberID, now)
}
