package clinics

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for clinics.
type RepositoryPort interface {
	GetByID(ctx context.Context, id string) (Clinic, error)
	UpdateName(ctx context.Context, id, name string) (Clinic, error)
}

// Service handles clinic business logic for the regular channel.
type Service struct {
	repo  RepositoryPort
	title cases.Caser
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, title: cases.Title(language.English)}
}

// Current returns the principal's own clinic. Principals without a
// tenant binding have no clinic to see.
func (s *Service) Current(ctx context.Context, p authz.Principal) (Clinic, error) {
	scope, err := authz.ScopeFor(authz.KindClinic, p)
	if err != nil {
		return Clinic{}, err
	}
	return s.repo.GetByID(ctx, scope.ClinicID)
}

// UpdateSettings renames the principal's own clinic.
func (s *Service) UpdateSettings(ctx context.Context, p authz.Principal, name string) (Clinic, error) {
	scope, err := authz.ScopeFor(authz.KindClinic, p)
	if err != nil {
		return Clinic{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Clinic{}, shared.ErrValidation
	}
	return s.repo.UpdateName(ctx, scope.ClinicID, s.title.String(name))
}
