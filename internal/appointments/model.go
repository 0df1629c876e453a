package appointments

import "time"

// Appointment statuses.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Appointment is one scheduled visit inside a clinic.
type Appointment struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	PatientID string    `json:"patient_id"`
	CreatedBy string    `json:"created_by"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
