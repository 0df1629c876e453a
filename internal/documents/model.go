package documents

import "time"

// Document is file metadata attached to a patient. Blob storage lives
// elsewhere; this module only tracks the reference.
type Document struct {
	ID          string    `json:"id"`
	ClinicID    string    `json:"clinic_id"`
	PatientID   string    `json:"patient_id"`
	CreatedBy   string    `json:"created_by"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
