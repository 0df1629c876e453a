package authz

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// rolePermissions is the static role table. A role not present holds the
// empty set; there is no way to grant permissions at runtime.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: permSet(AllPermissions()...),
	RoleStaff: permSet(
		PermClinicRead,
		PermPatientCreate, PermPatientRead, PermPatientUpdate,
		PermInvoiceCreate, PermInvoiceRead, PermInvoiceUpdate,
		PermDocumentCreate, PermDocumentRead,
		PermAppointmentCreate, PermAppointmentRead, PermAppointmentUpdate,
		PermSessionRead, PermSessionRevoke,
	),
	RoleExternal: permSet(
		PermPatientRead,
		PermInvoiceRead,
		PermDocumentRead,
		PermAppointmentRead,
		PermSessionRead, PermSessionRevoke,
	),
}

// HasPermission reports whether the role holds the permission.
// Unknown roles and unknown permissions are denied; the lookup is pure
// and never errors.
func HasPermission(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// RolePermissions returns the permissions granted to a role, for the
// introspection endpoint. The returned slice is a copy.
func RolePermissions(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}
