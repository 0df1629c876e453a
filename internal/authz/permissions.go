package authz

// Permission is an opaque identifier for one allowed operation on one
// resource kind. Defined at build time, never user-created.
type Permission string

const (
	PermClinicRead   Permission = "clinic:read"
	PermClinicUpdate Permission = "clinic:update"

	PermPatientCreate Permission = "patient:create"
	PermPatientRead   Permission = "patient:read"
	PermPatientUpdate Permission = "patient:update"
	PermPatientDelete Permission = "patient:delete"

	PermInvoiceCreate Permission = "invoice:create"
	PermInvoiceRead   Permission = "invoice:read"
	PermInvoiceUpdate Permission = "invoice:update"
	PermInvoiceDelete Permission = "invoice:delete"

	PermDocumentCreate Permission = "document:create"
	PermDocumentRead   Permission = "document:read"
	PermDocumentDelete Permission = "document:delete"

	PermAppointmentCreate Permission = "appointment:create"
	PermAppointmentRead   Permission = "appointment:read"
	PermAppointmentUpdate Permission = "appointment:update"
	PermAppointmentDelete Permission = "appointment:delete"

	PermUserRead   Permission = "user:read"
	PermUserUpdate Permission = "user:update"

	PermSessionRead   Permission = "session:read"
	PermSessionRevoke Permission = "session:revoke"
)

// AllPermissions lists every permission in the catalog.
func AllPermissions() []Permission {
	return []Permission{
		PermClinicRead, PermClinicUpdate,
		PermPatientCreate, PermPatientRead, PermPatientUpdate, PermPatientDelete,
		PermInvoiceCreate, PermInvoiceRead, PermInvoiceUpdate, PermInvoiceDelete,
		PermDocumentCreate, PermDocumentRead, PermDocumentDelete,
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate, PermAppointmentDelete,
		PermUserRead, PermUserUpdate,
		PermSessionRead, PermSessionRevoke,
	}
}
