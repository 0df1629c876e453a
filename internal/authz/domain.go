// Package authz implements the role-based permission model, the tenant
// scoping rules and the request authorization middleware. Every protected
// route goes through this package; handlers behind it can assume a
// resolved, permission-checked Principal in the request context.
package authz

// Role is a named grouping of permissions.
type Role string

// Roles known to the regular authorization channel. The platform operator
// is deliberately absent: it lives in its own session namespace and never
// passes through the permission registry.
const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleExternal Role = "external"
)

// ResourceKind identifies a scoped resource collection.
type ResourceKind string

const (
	KindClinic      ResourceKind = "clinic"
	KindPatient     ResourceKind = "patient"
	KindInvoice     ResourceKind = "invoice"
	KindDocument    ResourceKind = "document"
	KindAppointment ResourceKind = "appointment"
	KindSession     ResourceKind = "session"
)

// Principal is the resolved identity of the current caller. It is built
// once per request by the session resolver and never re-resolved
// mid-request.
type Principal struct {
	ID         string
	Role       Role
	ClinicID   *string
	IsExternal bool
}

// InClinic reports whether the principal is bound to the given tenant.
func (p Principal) InClinic(clinicID string) bool {
	return p.ClinicID != nil && *p.ClinicID == clinicID
}
