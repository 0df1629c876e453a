package patients

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

type stubRepo struct {
	patients map[string]Patient
	nextID   int
}

func newStubRepo() *stubRepo {
	return &stubRepo{patients: make(map[string]Patient), nextID: 1}
}

func (r *stubRepo) inScope(p Patient, scope authz.Scope) bool {
	if p.ClinicID != scope.ClinicID {
		return false
	}
	if scope.OwnerID != "" && p.CreatedBy != scope.OwnerID {
		return false
	}
	return true
}

func (r *stubRepo) List(ctx context.Context, scope authz.Scope, page shared.Pagination) ([]Patient, int, error) {
	var out []Patient
	for _, p := range r.patients {
		if r.inScope(p, scope) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (r *stubRepo) GetByID(ctx context.Context, scope authz.Scope, id string) (Patient, error) {
	p, ok := r.patients[id]
	if !ok || !r.inScope(p, scope) {
		return Patient{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *stubRepo) Create(ctx context.Context, p Patient) (Patient, error) {
	p.ID = fmt.Sprintf("p%d", r.nextID)
	r.nextID++
	r.patients[p.ID] = p
	return p, nil
}

func (r *stubRepo) Update(ctx context.Context, scope authz.Scope, p Patient) (Patient, error) {
	existing, err := r.GetByID(ctx, scope, p.ID)
	if err != nil {
		return Patient{}, err
	}
	p.ClinicID = existing.ClinicID
	p.CreatedBy = existing.CreatedBy
	r.patients[p.ID] = p
	return p, nil
}

func (r *stubRepo) Delete(ctx context.Context, scope authz.Scope, id string) error {
	if _, err := r.GetByID(ctx, scope, id); err != nil {
		return err
	}
	delete(r.patients, id)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateAssignsTenantAndNormalizes(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	staff := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}

	p, err := svc.Create(context.Background(), staff, Patient{
		FirstName: "  ada ",
		LastName:  "lovelace",
		Email:     " Ada@Clinic.Test ",
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", p.ClinicID, "the tenant comes from the principal, never the payload")
	assert.Equal(t, "u1", p.CreatedBy)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Equal(t, "ada@clinic.test", p.Email)
}

func TestCreateIgnoresPayloadClinic(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	staff := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}

	p, err := svc.Create(context.Background(), staff, Patient{FirstName: "A", LastName: "B", ClinicID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, "c1", p.ClinicID)
}

func TestCreateWithoutClinicBinding(t *testing.T) {
	svc := NewService(newStubRepo())
	unbound := authz.Principal{ID: "u1", Role: authz.RoleStaff}

	_, err := svc.Create(context.Background(), unbound, Patient{FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGetRespectsClinicIsolation(t *testing.T) {
	repo := newStubRepo()
	repo.patients["p1"] = Patient{ID: "p1", ClinicID: "c2", CreatedBy: "u5"}
	svc := NewService(repo)
	staff := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}

	_, err := svc.Get(context.Background(), staff, "p1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListExternalSeesOwnRowsOnly(t *testing.T) {
	repo := newStubRepo()
	repo.patients["p1"] = Patient{ID: "p1", ClinicID: "c1", CreatedBy: "u9"}
	repo.patients["p2"] = Patient{ID: "p2", ClinicID: "c1", CreatedBy: "u2"}
	repo.patients["p3"] = Patient{ID: "p3", ClinicID: "c2", CreatedBy: "u9"}
	svc := NewService(repo)
	external := authz.Principal{ID: "u9", Role: authz.RoleExternal, ClinicID: strPtr("c1"), IsExternal: true}

	rows, pagination, err := svc.List(context.Background(), external, 1, 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].ID)
	assert.Equal(t, 1, pagination.Total)
}

func TestValidation(t *testing.T) {
	svc := NewService(newStubRepo())
	staff := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}

	_, err := svc.Create(context.Background(), staff, Patient{LastName: "B"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), staff, Patient{FirstName: "A"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
