package users

import (
	"context"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByClinic(ctx context.Context, clinicID string) ([]User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get fetches one user record by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListColleagues returns the users of the principal's own clinic.
func (s *Service) ListColleagues(ctx context.Context, p authz.Principal) ([]User, error) {
	if p.ClinicID == nil {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListByClinic(ctx, *p.ClinicID)
}
