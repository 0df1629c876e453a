package invoices

import "time"

// Invoice statuses.
const (
	StatusDraft  = "DRAFT"
	StatusIssued = "ISSUED"
	StatusPaid   = "PAID"
	StatusVoid   = "VOID"
)

// Invoice is billed against a patient; its tenant follows the patient's
// clinic rather than being stored on the invoice itself.
type Invoice struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	ClinicID    string    `json:"clinic_id"`
	CreatedBy   string    `json:"created_by"`
	Number      string    `json:"number"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
