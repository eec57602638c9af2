package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecmax-dev/sisvida-sub005/internal/professionals"
	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
)

type stubDirectory struct {
	prof      *professionals.Professional
	searchErr error
	lastQuery string
}

func (d *stubDirectory) GetByID(context.Context, uuid.UUID) (*professionals.Professional, error) {
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	return d.prof, nil
}

func (d *stubDirectory) SearchByName(_ context.Context, _ uuid.UUID, fragment string) (*professionals.Professional, error) {
	d.lastQuery = fragment
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	return d.prof, nil
}

func (d *stubDirectory) List(context.Context, uuid.UUID, string) ([]professionals.Professional, error) {
	if d.prof == nil {
		return nil, nil
	}
	return []professionals.Professional{*d.prof}, nil
}

type stubStore struct {
	created   []Appointment
	createErr error
	booked    map[string]schedule.BookedSet
	cancelled []uuid.UUID
	cancelErr error
	upcoming  []Appointment
}

func (s *stubStore) Create(_ context.Context, appt Appointment) (*Appointment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, appt)
	return &appt, nil
}

func (s *stubStore) Cancel(_ context.Context, id uuid.UUID, _ string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func (s *stubStore) BookedStarts(context.Context, uuid.UUID, time.Time, time.Time) (map[string]schedule.BookedSet, error) {
	return s.booked, nil
}

func (s *stubStore) ListUpcomingByMember(context.Context, uuid.UUID, time.Time) ([]Appointment, error) {
	return s.upcoming, nil
}

func wednesdayAfternoon() *professionals.Professional {
	return &professionals.Professional{
		ID:       uuid.New(),
		ClinicID: uuid.New(),
		Name:     "Dr. Alcides Moura",
		Active:   true,
		Weekly: schedule.Weekly{
			time.Wednesday: schedule.Day{
				Enabled: true,
				Ranges: []schedule.Range{
					{Start: schedule.TimeOfDay(13 * 60), End: schedule.TimeOfDay(17 * 60)},
				},
			},
		},
		SlotMinutes: 30,
	}
}

func newTestService(store *stubStore, dir *stubDirectory) *Service {
	return NewService(store, dir, schedule.NewCalculator(30, 5, 20), nil)
}

func TestBookDerivesEndFromSlotDuration(t *testing.T) {
	store := &stubStore{}
	dir := &stubDirectory{prof: wednesdayAfternoon()}
	svc := newTestService(store, dir)

	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	appt, err := svc.Book(context.Background(), dir.prof.ClinicID, uuid.New(), "alcides", date, schedule.TimeOfDay(14*60))
	require.NoError(t, err)

	assert.Equal(t, "alcides", dir.lastQuery)
	assert.Equal(t, "14:00", appt.Start.String())
	assert.Equal(t, "14:30", appt.End.String())
	assert.Equal(t, dir.prof.Name, appt.ProfessionalName)
	assert.Equal(t, StatusScheduled, appt.Status)
	require.Len(t, store.created, 1)
	assert.Equal(t, dir.prof.ID, store.created[0].ProfessionalID)
}

func TestBookDefaultsSlotDuration(t *testing.T) {
	prof := wednesdayAfternoon()
	prof.SlotMinutes = 0
	store := &stubStore{}
	svc := newTestService(store, &stubDirectory{prof: prof})

	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	appt, err := svc.Book(context.Background(), prof.ClinicID, uuid.New(), "alcides", date, schedule.TimeOfDay(13*60))
	require.NoError(t, err)
	assert.Equal(t, "13:30", appt.End.String())
}

func TestBookSurfacesTaxonomyErrors(t *testing.T) {
	for _, want := range []error{ErrSlotTaken, ErrBookingLimitExceeded, ErrMembershipExpired} {
		store := &stubStore{createErr: want}
		svc := newTestService(store, &stubDirectory{prof: wednesdayAfternoon()})

		date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
		_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), "alcides", date, schedule.TimeOfDay(14*60))
		assert.ErrorIs(t, err, want)
	}
}

func TestBookUnknownProfessional(t *testing.T) {
	svc := newTestService(&stubStore{}, &stubDirectory{searchErr: professionals.ErrNotFound})

	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), "nobody", date, schedule.TimeOfDay(14*60))
	assert.ErrorIs(t, err, professionals.ErrNotFound)
}

func TestOpenTimesExcludesBookedStarts(t *testing.T) {
	// Wednesday 2026-03-04 with 14:00 already taken.
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	store := &stubStore{booked: map[string]schedule.BookedSet{
		"2026-03-04": {schedule.TimeOfDay(14 * 60): {}},
	}}
	dir := &stubDirectory{prof: wednesdayAfternoon()}
	svc := newTestService(store, dir)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	prof, times, err := svc.OpenTimes(context.Background(), dir.prof.ClinicID, "alcides", date, now)
	require.NoError(t, err)
	assert.Equal(t, dir.prof.Name, prof.Name)

	got := make([]string, len(times))
	for i, tod := range times {
		got[i] = tod.String()
	}
	assert.Equal(t, []string{"13:00", "13:30", "14:30", "15:00", "15:30", "16:00", "16:30"}, got)
}

func TestOpenTimesClosedWeekday(t *testing.T) {
	dir := &stubDirectory{prof: wednesdayAfternoon()}
	svc := newTestService(&stubStore{}, dir)

	thursday := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	_, _, err := svc.OpenTimes(context.Background(), dir.prof.ClinicID, "alcides", thursday, thursday)
	assert.ErrorIs(t, err, schedule.ErrWeekdayClosed)
}

func TestOpenDatesCountsFreeSlots(t *testing.T) {
	// 30-day horizon from Monday 2026-03-02 holds Wednesdays 03-04, 03-11,
	// 03-18, 03-25; the first is fully booked and must be skipped.
	full := make(schedule.BookedSet)
	for tod := schedule.TimeOfDay(13 * 60); tod < schedule.TimeOfDay(17*60); tod += 30 {
		full[tod] = struct{}{}
	}
	store := &stubStore{booked: map[string]schedule.BookedSet{"2026-03-04": full}}
	dir := &stubDirectory{prof: wednesdayAfternoon()}
	svc := newTestService(store, dir)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	prof, dates, err := svc.OpenDates(context.Background(), dir.prof.ClinicID, "alcides", now)
	require.NoError(t, err)
	assert.Equal(t, dir.prof.ID, prof.ID)

	require.Len(t, dates, 3)
	assert.Equal(t, "2026-03-11", dates[0].Date.Format("2006-01-02"))
	assert.Equal(t, 8, dates[0].FreeSlots)
}

func TestCancelDelegatesToStore(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store, &stubDirectory{prof: wednesdayAfternoon()})

	id := uuid.New()
	require.NoError(t, svc.Cancel(context.Background(), id, "remarcar"))
	require.Len(t, store.cancelled, 1)
	assert.Equal(t, id, store.cancelled[0])

	store.cancelErr = ErrNotFound
	assert.ErrorIs(t, svc.Cancel(context.Background(), uuid.New(), ""), ErrNotFound)
}
