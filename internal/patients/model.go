package patients

import "time"

// Patient represents a patient record owned by one clinic.
type Patient struct {
	ID          string     `json:"id"`
	ClinicID    string     `json:"clinic_id"`
	CreatedBy   string     `json:"created_by"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
