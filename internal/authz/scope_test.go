package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/shared"
)

func strPtr(s string) *string { return &s }

func TestScopeForClinicScopedKinds(t *testing.T) {
	staff := Principal{ID: "u1", Role: RoleStaff, ClinicID: strPtr("c1")}

	for _, kind := range []ResourceKind{KindPatient, KindInvoice, KindDocument, KindAppointment} {
		scope, err := ScopeFor(kind, staff)
		require.NoError(t, err)
		assert.Equal(t, "c1", scope.ClinicID)
		assert.Empty(t, scope.OwnerID, "non-external users see whole clinic")
	}
}

func TestScopeForExternalNarrowsToOwnRows(t *testing.T) {
	external := Principal{ID: "u9", Role: RoleExternal, ClinicID: strPtr("c1"), IsExternal: true}

	scope, err := ScopeFor(KindPatient, external)
	require.NoError(t, err)
	assert.Equal(t, "c1", scope.ClinicID)
	assert.Equal(t, "u9", scope.OwnerID)
}

func TestScopeForNoClinicBinding(t *testing.T) {
	unbound := Principal{ID: "u1", Role: RoleStaff}

	_, err := ScopeFor(KindPatient, unbound)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = ScopeFor(KindClinic, unbound)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestScopeForSessionsIgnoreClinic(t *testing.T) {
	external := Principal{ID: "u9", Role: RoleExternal, IsExternal: true}

	scope, err := ScopeFor(KindSession, external)
	require.NoError(t, err)
	assert.Empty(t, scope.ClinicID)
	assert.Equal(t, "u9", scope.OwnerID)
}

func TestScopeForUnknownKindFailsClosed(t *testing.T) {
	admin := Principal{ID: "u1", Role: RoleAdmin, ClinicID: strPtr("c1")}
	_, err := ScopeFor(ResourceKind("warehouse"), admin)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

type stubAccessStore struct {
	attrs map[string]ResourceAttrs
	err   error
}

func (s *stubAccessStore) ResourceAttrs(ctx context.Context, kind ResourceKind, id string) (ResourceAttrs, error) {
	if s.err != nil {
		return ResourceAttrs{}, s.err
	}
	attrs, ok := s.attrs[id]
	if !ok {
		return ResourceAttrs{}, shared.ErrNotFound
	}
	return attrs, nil
}

func TestVerifyAccessSameClinic(t *testing.T) {
	store := &stubAccessStore{attrs: map[string]ResourceAttrs{
		"p1": {ClinicID: strPtr("c1"), OwnerID: "u2"},
	}}
	checker := NewChecker(store)
	staff := Principal{ID: "u1", Role: RoleStaff, ClinicID: strPtr("c1")}

	require.NoError(t, checker.VerifyAccess(context.Background(), KindPatient, "p1", staff))
}

func TestVerifyAccessOtherClinicReportsNotFound(t *testing.T) {
	store := &stubAccessStore{attrs: map[string]ResourceAttrs{
		"p1": {ClinicID: strPtr("c2"), OwnerID: "u2"},
	}}
	checker := NewChecker(store)
	staff := Principal{ID: "u1", Role: RoleStaff, ClinicID: strPtr("c1")}

	err := checker.VerifyAccess(context.Background(), KindPatient, "p1", staff)
	assert.ErrorIs(t, err, shared.ErrNotFound, "existence of foreign rows must stay hidden")
}

func TestVerifyAccessExternalBlockedFromColleagueRows(t *testing.T) {
	store := &stubAccessStore{attrs: map[string]ResourceAttrs{
		"p1": {ClinicID: strPtr("c1"), OwnerID: "u2"},
	}}
	checker := NewChecker(store)
	external := Principal{ID: "u9", Role: RoleExternal, ClinicID: strPtr("c1"), IsExternal: true}

	err := checker.VerifyAccess(context.Background(), KindPatient, "p1", external)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerifyAccessForeignSessionIsForbidden(t *testing.T) {
	store := &stubAccessStore{attrs: map[string]ResourceAttrs{
		"s1": {OwnerID: "u2"},
	}}
	checker := NewChecker(store)
	caller := Principal{ID: "u1", Role: RoleStaff, ClinicID: strPtr("c1")}

	err := checker.VerifyAccess(context.Background(), KindSession, "s1", caller)
	assert.ErrorIs(t, err, shared.ErrForbidden, "session ownership conflicts may disclose existence")
}

func TestVerifyAccessMissingRow(t *testing.T) {
	checker := NewChecker(&stubAccessStore{attrs: map[string]ResourceAttrs{}})
	staff := Principal{ID: "u1", Role: RoleStaff, ClinicID: strPtr("c1")}

	err := checker.VerifyAccess(context.Background(), KindPatient, "nope", staff)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerifyAccessIntegrityErrorPropagates(t *testing.T) {
	checker := NewChecker(&stubAccessStore{err: shared.ErrIntegrity})
	staff := Principal{ID: "u1", Role: RoleStaff, ClinicID: strPtr("c1")}

	err := checker.VerifyAccess(context.Background(), KindInvoice, "i1", staff)
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}
