package patients

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for patients.
type RepositoryPort interface {
	List(ctx context.Context, scope authz.Scope, page shared.Pagination) ([]Patient, int, error)
	GetByID(ctx context.Context, scope authz.Scope, id string) (Patient, error)
	Create(ctx context.Context, p Patient) (Patient, error)
	Update(ctx context.Context, scope authz.Scope, p Patient) (Patient, error)
	Delete(ctx context.Context, scope authz.Scope, id string) error
}

// Service handles patient business logic. All repository access happens
// through the scope derived from the caller's principal.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, title: cases.Title(language.English)}
}

// List returns the patients visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal, page, perPage int) ([]Patient, shared.Pagination, error) {
	scope, err := authz.ScopeFor(authz.KindPatient, p)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.List(ctx, scope, pagination)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// Get fetches one patient within the principal's scope.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string) (Patient, error) {
	scope, err := authz.ScopeFor(authz.KindPatient, p)
	if err != nil {
		return Patient{}, shared.ErrNotFound
	}
	return s.repo.GetByID(ctx, scope, id)
}

// Create registers a patient in the principal's clinic.
func (s *Service) Create(ctx context.Context, p authz.Principal, patient Patient) (Patient, error) {
	scope, err := authz.ScopeFor(authz.KindPatient, p)
	if err != nil {
		return Patient{}, err
	}
	if err := s.validate(patient); err != nil {
		return Patient{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	patient.ClinicID = scope.ClinicID
	patient.CreatedBy = p.ID
	s.normalize(&patient)
	return s.repo.Create(ctx, patient)
}

// Update modifies a patient within the principal's scope.
func (s *Service) Update(ctx context.Context, p authz.Principal, patient Patient) (Patient, error) {
	scope, err := authz.ScopeFor(authz.KindPatient, p)
	if err != nil {
		return Patient{}, shared.ErrNotFound
	}
	if err := s.validate(patient); err != nil {
		return Patient{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	s.normalize(&patient)
	return s.repo.Update(ctx, scope, patient)
}

// Delete removes a patient within the principal's scope.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id string) error {
	scope, err := authz.ScopeFor(authz.KindPatient, p)
	if err != nil {
		return shared.ErrNotFound
	}
	return s.repo.Delete(ctx, scope, id)
}

func (s *Service) normalize(p *Patient) {
	p.FirstName = s.title.String(strings.TrimSpace(p.FirstName))
	p.LastName = s.title.String(strings.TrimSpace(p.LastName))
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
}
