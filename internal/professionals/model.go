package professionals

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
)

// Professional is a clinic professional with a recurring weekly template.
// The weekly schedule and slot duration drive availability computation; the
// rows themselves are owned by the clinic CRUD and read-only here.
type Professional struct {
	ID           uuid.UUID       `json:"id"`
	ClinicID     uuid.UUID       `json:"clinic_id"`
	Name         string          `json:"name"`
	Specialty    string          `json:"specialty,omitempty"`
	Active       bool            `json:"active"`
	Weekly       schedule.Weekly `json:"weekly_schedule,omitempty"`
	SlotMinutes  int             `json:"slot_minutes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
