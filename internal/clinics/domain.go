package clinics

import "time"

// Subscription states a clinic can be in.
const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionTrial     = "TRIAL"
	SubscriptionSuspended = "SUSPENDED"
)

// Clinic is the tenant: the unit of data isolation.
type Clinic struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	IsActive           bool      `json:"is_active"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
