// Package superadmin implements the operator control plane: a parallel,
// stricter session mechanism with its own cookie namespace, mandatory
// audit logging of every state-changing action, and tenant lifecycle
// operations. Operator sessions and regular user sessions never mix:
// each resolver only accepts tokens from its own table.
package superadmin

import "time"

// Operator is a platform-level account. It holds no role or clinic: the
// operator channel is implicitly all-powerful within itself.
type Operator struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Session is an operator session, tracked separately from user sessions.
type Session struct {
	ID        string
	AdminID   string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TenantCounters summarises a clinic's footprint for the operator
// dashboard.
type TenantCounters struct {
	Users    int64 `json:"users"`
	Patients int64 `json:"patients"`
}

// Audit actions recorded by the operator channel.
const (
	ActionLogin             = "LOGIN"
	ActionLogout            = "LOGOUT"
	ActionClinicSuspended   = "CLINIC_SUSPENDED"
	ActionClinicReactivated = "CLINIC_REACTIVATED"
)
