package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
)

// Status is the appointment lifecycle state. Rows are never deleted; they
// only transition between statuses.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
	StatusCompleted Status = "completed"
)

// Appointment is one booked slot for a professional and member.
type Appointment struct {
	ID             uuid.UUID          `json:"id"`
	ClinicID       uuid.UUID          `json:"clinic_id"`
	ProfessionalID uuid.UUID          `json:"professional_id"`
	MemberID       uuid.UUID          `json:"member_id"`
	Date           time.Time          `json:"date"`
	Start          schedule.TimeOfDay `json:"start_time"`
	End            schedule.TimeOfDay `json:"end_time"`
	Status         Status             `json:"status"`
	CancelReason   string             `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	// ProfessionalName is populated on listing queries for display.
	ProfessionalName string `json:"professional_name,omitempty"`
}
