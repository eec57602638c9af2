package appointments

import "errors"

// Domain error taxonomy. Storage-layer signals (unique violations, trigger
// raises) are translated into these at the repository boundary; nothing
// above it inspects SQLSTATEs.
var (
	// ErrSlotTaken means another non-cancelled appointment already holds the
	// professional/date/start — including the loser of a concurrent race.
	ErrSlotTaken = errors.New("appointments: slot no longer available")
	// ErrBookingLimitExceeded means the member reached their monthly quota.
	ErrBookingLimitExceeded = errors.New("appointments: monthly booking limit exceeded")
	// ErrMembershipExpired means the member's credential lapsed before the
	// requested date.
	ErrMembershipExpired = errors.New("appointments: membership expired")
	// ErrNotFound means the appointment does not exist or is not in a state
	// the operation accepts.
	ErrNotFound = errors.New("appointments: not found")
)
