package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for documents.
type RepositoryPort interface {
	ListByPatient(ctx context.Context, scope authz.Scope, patientID string) ([]Document, error)
	GetByID(ctx context.Context, scope authz.Scope, id string) (Document, error)
	Create(ctx context.Context, d Document) (Document, error)
	Delete(ctx context.Context, scope authz.Scope, id string) error
}

// Service handles document metadata logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListByPatient returns the documents visible to the principal for one
// patient.
func (s *Service) ListByPatient(ctx context.Context, p authz.Principal, patientID string) ([]Document, error) {
	scope, err := authz.ScopeFor(authz.KindDocument, p)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, scope, patientID)
}

// Get fetches one document within the principal's scope.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string) (Document, error) {
	scope, err := authz.ScopeFor(authz.KindDocument, p)
	if err != nil {
		return Document{}, shared.ErrNotFound
	}
	return s.repo.GetByID(ctx, scope, id)
}

// Create records document metadata in the principal's clinic.
func (s *Service) Create(ctx context.Context, p authz.Principal, d Document) (Document, error) {
	scope, err := authz.ScopeFor(authz.KindDocument, p)
	if err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(d.FileName) == "" {
		return Document{}, fmt.Errorf("%w: file name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(d.PatientID) == "" {
		return Document{}, fmt.Errorf("%w: patient is required", shared.ErrValidation)
	}
	d.ClinicID = scope.ClinicID
	d.CreatedBy = p.ID
	return s.repo.Create(ctx, d)
}

// Delete removes a document record within the principal's scope.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id string) error {
	scope, err := authz.ScopeFor(authz.KindDocument, p)
	if err != nil {
		return shared.ErrNotFound
	}
	return s.repo.Delete(ctx, scope, id)
}
