// Package schedule computes real appointment availability from a
// professional's recurring weekly template. The calculator is pure: callers
// supply the template, the booked start times, and the current wall-clock so
// every result is reproducible in tests.
package schedule

import (
	"errors"
	"time"
)

var (
	// ErrNotConfigured means the professional has no weekly schedule at all.
	ErrNotConfigured = errors.New("schedule: weekly schedule not configured")
	// ErrWeekdayClosed means the requested date falls on a weekday the
	// professional never works, as opposed to a day that is merely full.
	ErrWeekdayClosed = errors.New("schedule: weekday not open")
)

const defaultSlotMinutes = 30

// BookedSet holds the taken start times for one professional and date,
// truncated to the minute. Cancelled and no-show appointments must not be
// included.
type BookedSet map[TimeOfDay]struct{}

// BookedLookup resolves the BookedSet for a date during a horizon scan.
type BookedLookup func(date time.Time) (BookedSet, error)

// DateAvailability summarizes one open date. Only the free-slot count is
// carried so multi-day results stay compact.
type DateAvailability struct {
	Date      time.Time `json:"date"`
	FreeSlots int       `json:"free_slots"`
}

// Calculator generates candidate slots from a weekly template.
type Calculator struct {
	// HorizonDays bounds the forward scan in OpenDates.
	HorizonDays int
	// MaxOpenDates short-circuits the scan once this many open dates exist.
	MaxOpenDates int
	// MaxTimesPerDay caps the slot list returned by OpenTimes.
	MaxTimesPerDay int
}

// NewCalculator returns a calculator with production defaults.
func NewCalculator(horizonDays, maxOpenDates, maxTimesPerDay int) Calculator {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	if maxOpenDates <= 0 {
		maxOpenDates = 5
	}
	if maxTimesPerDay <= 0 {
		maxTimesPerDay = 20
	}
	return Calculator{
		HorizonDays:    horizonDays,
		MaxOpenDates:   maxOpenDates,
		MaxTimesPerDay: maxTimesPerDay,
	}
}

// OpenTimes returns the ordered free start times for a single date.
// Returns ErrNotConfigured or ErrWeekdayClosed instead of an empty success
// list when the template cannot yield slots for that date.
func (c Calculator) OpenTimes(w Weekly, slotMinutes int, date time.Time, booked BookedSet, now time.Time) ([]TimeOfDay, error) {
	if !w.Configured() {
		return nil, ErrNotConfigured
	}
	day, ok := w[date.Weekday()]
	if !ok || !day.Enabled {
		return nil, ErrWeekdayClosed
	}

	free := make([]TimeOfDay, 0, c.MaxTimesPerDay)
	for _, t := range slotGrid(day, slotMinutes) {
		if _, taken := booked[t]; taken {
			continue
		}
		if sameDate(date, now) && t <= FromClock(now) {
			continue
		}
		free = append(free, t)
		if len(free) == c.MaxTimesPerDay {
			break
		}
	}
	return free, nil
}

// OpenDates scans forward from today up to HorizonDays, returning per-date
// free-slot counts and stopping once MaxOpenDates open dates are found.
// Dates whose weekday is disabled contribute nothing; ErrNotConfigured is
// still surfaced so the caller can explain the difference to the user.
func (c Calculator) OpenDates(w Weekly, slotMinutes int, booked BookedLookup, now time.Time) ([]DateAvailability, error) {
	if !w.Configured() {
		return nil, ErrNotConfigured
	}

	open := make([]DateAvailability, 0, c.MaxOpenDates)
	for offset := 0; offset < c.HorizonDays; offset++ {
		date := now.AddDate(0, 0, offset)
		day, ok := w[date.Weekday()]
		if !ok || !day.Enabled {
			continue
		}

		taken, err := booked(date)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, t := range slotGrid(day, slotMinutes) {
			if _, isTaken := taken[t]; isTaken {
				continue
			}
			if sameDate(date, now) && t <= FromClock(now) {
				continue
			}
			count++
		}
		if count == 0 {
			continue
		}

		open = append(open, DateAvailability{Date: date, FreeSlots: count})
		if len(open) == c.MaxOpenDates {
			break
		}
	}
	return open, nil
}

// slotGrid steps through each enabled range by the appointment duration.
// A start is only offered when the full appointment fits inside the range;
// slots that would overrun the closing time are not generated.
func slotGrid(day Day, slotMinutes int) []TimeOfDay {
	if slotMinutes <= 0 {
		slotMinutes = defaultSlotMinutes
	}
	step := time.Duration(slotMinutes) * time.Minute

	var grid []TimeOfDay
	for _, r := range day.Ranges {
		for t := r.Start; t.Add(step) <= r.End; t = t.Add(step) {
			grid = append(grid, t)
		}
	}
	return grid
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
