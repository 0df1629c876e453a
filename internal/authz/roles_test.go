package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermissionAdminHoldsEverything(t *testing.T) {
	for _, perm := range AllPermissions() {
		assert.True(t, HasPermission(RoleAdmin, perm), "admin should hold %s", perm)
	}
}

func TestHasPermissionStaffRestrictions(t *testing.T) {
	assert.True(t, HasPermission(RoleStaff, PermPatientCreate))
	assert.True(t, HasPermission(RoleStaff, PermInvoiceUpdate))
	assert.True(t, HasPermission(RoleStaff, PermClinicRead))

	assert.False(t, HasPermission(RoleStaff, PermClinicUpdate))
	assert.False(t, HasPermission(RoleStaff, PermPatientDelete))
	assert.False(t, HasPermission(RoleStaff, PermUserRead))
	assert.False(t, HasPermission(RoleStaff, PermUserUpdate))
}

func TestHasPermissionExternalIsReadOnly(t *testing.T) {
	assert.True(t, HasPermission(RoleExternal, PermPatientRead))
	assert.True(t, HasPermission(RoleExternal, PermInvoiceRead))
	assert.True(t, HasPermission(RoleExternal, PermSessionRevoke))

	assert.False(t, HasPermission(RoleExternal, PermPatientCreate))
	assert.False(t, HasPermission(RoleExternal, PermPatientUpdate))
	assert.False(t, HasPermission(RoleExternal, PermInvoiceCreate))
	assert.False(t, HasPermission(RoleExternal, PermDocumentCreate))
	assert.False(t, HasPermission(RoleExternal, PermClinicUpdate))
}

func TestHasPermissionDeniesByDefault(t *testing.T) {
	assert.False(t, HasPermission(Role("ghost"), PermPatientRead))
	assert.False(t, HasPermission(RoleStaff, Permission("patient:explode")))
	assert.False(t, HasPermission(Role(""), Permission("")))
}

func TestRolePermissionsReturnsCopy(t *testing.T) {
	perms := RolePermissions(RoleExternal)
	require.NotEmpty(t, perms)
	perms[0] = Permission("mutated")
	fresh := RolePermissions(RoleExternal)
	assert.NotContains(t, fresh, Permission("mutated"))

	assert.Nil(t, RolePermissions(Role("ghost")))
}
