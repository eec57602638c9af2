package patients

import (
	"time"

	"github.com/google/uuid"
)

// Member is a clinic member (patient) resolved by CPF. Rows are owned by the
// membership CRUD; this core only ever reads them.
type Member struct {
	ID                  uuid.UUID  `json:"id"`
	ClinicID            uuid.UUID  `json:"clinic_id"`
	Name                string     `json:"name"`
	CPF                 string     `json:"cpf"`
	Phone               string     `json:"phone,omitempty"`
	MonthlyLimit        int        `json:"monthly_limit"`
	MembershipExpiresAt *time.Time `json:"membership_expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}
