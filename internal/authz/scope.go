package authz

import (
	"context"

	"github.com/clinicore/clinicore/internal/shared"
)

// Scope is the data-visibility filter derived from a principal. Empty
// fields mean the dimension is unconstrained. Repositories append the
// scope to every list query so handlers only ever see pre-scoped rows.
type Scope struct {
	// ClinicID restricts rows to one tenant when non-empty.
	ClinicID string
	// OwnerID restricts rows to those created by one user when non-empty.
	OwnerID string
}

func clinicScoped(kind ResourceKind) bool {
	switch kind {
	case KindPatient, KindInvoice, KindDocument, KindAppointment:
		return true
	}
	return false
}

// ScopeFor derives the visibility filter for a resource kind. Principals
// without a tenant binding are denied access to clinic-scoped resources;
// external principals are narrowed further to rows they created.
func ScopeFor(kind ResourceKind, p Principal) (Scope, error) {
	switch {
	case clinicScoped(kind):
		if p.ClinicID == nil {
			return Scope{}, shared.ErrForbidden
		}
		scope := Scope{ClinicID: *p.ClinicID}
		if p.IsExternal {
			scope.OwnerID = p.ID
		}
		return scope, nil
	case kind == KindClinic:
		if p.ClinicID == nil {
			return Scope{}, shared.ErrForbidden
		}
		return Scope{ClinicID: *p.ClinicID}, nil
	case kind == KindSession:
		return Scope{OwnerID: p.ID}, nil
	}
	// Unknown kinds fail closed.
	return Scope{}, shared.ErrForbidden
}

// ResourceAttrs carries the ownership attributes of a single resource
// instance, as needed for an access decision.
type ResourceAttrs struct {
	ClinicID *string
	OwnerID  string
}

// AccessStore looks up ownership attributes of a resource instance.
// Implementations return shared.ErrNotFound for absent rows and
// shared.ErrIntegrity when a required parent relation is missing.
type AccessStore interface {
	ResourceAttrs(ctx context.Context, kind ResourceKind, id string) (ResourceAttrs, error)
}

// Checker performs instance-level access checks for point lookups.
type Checker struct {
	store AccessStore
}

// NewChecker constructs a Checker over the given store.
func NewChecker(store AccessStore) *Checker {
	return &Checker{store: store}
}

// VerifyAccess re-derives the same filter as ScopeFor for a single
// resource and fails closed. A row that exists but falls outside the
// principal's scope is reported as shared.ErrNotFound so existence is
// never confirmed to unauthorized callers. The one exception is session
// ownership: a session of another user of the same account is reported
// as shared.ErrForbidden, since disclosure is acceptable there.
func (c *Checker) VerifyAccess(ctx context.Context, kind ResourceKind, id string, p Principal) error {
	attrs, err := c.store.ResourceAttrs(ctx, kind, id)
	if err != nil {
		return err
	}

	scope, err := ScopeFor(kind, p)
	if err != nil {
		return shared.ErrNotFound
	}

	if scope.ClinicID != "" {
		if attrs.ClinicID == nil || *attrs.ClinicID != scope.ClinicID {
			return shared.ErrNotFound
		}
	}
	if scope.OwnerID != "" && attrs.OwnerID != scope.OwnerID {
		if kind == KindSession {
			return shared.ErrForbidden
		}
		return shared.ErrNotFound
	}
	return nil
}
