package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for appointments.
type RepositoryPort interface {
	List(ctx context.Context, scope authz.Scope, from, to time.Time) ([]Appointment, error)
	GetByID(ctx context.Context, scope authz.Scope, id string) (Appointment, error)
	Create(ctx context.Context, a Appointment) (Appointment, error)
	UpdateStatus(ctx context.Context, scope authz.Scope, id, status string) (Appointment, error)
	Delete(ctx context.Context, scope authz.Scope, id string) error
}

var validStatusTransitions = map[string][]string{
	StatusScheduled: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Service handles scheduling logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns appointments in [from, to) visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal, from, to time.Time) ([]Appointment, error) {
	scope, err := authz.ScopeFor(authz.KindAppointment, p)
	if err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: window end must be after start", shared.ErrValidation)
	}
	return s.repo.List(ctx, scope, from, to)
}

// Get fetches one appointment within the principal's scope.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string) (Appointment, error) {
	scope, err := authz.ScopeFor(authz.KindAppointment, p)
	if err != nil {
		return Appointment{}, shared.ErrNotFound
	}
	return s.repo.GetByID(ctx, scope, id)
}

// Create schedules an appointment in the principal's clinic.
func (s *Service) Create(ctx context.Context, p authz.Principal, a Appointment) (Appointment, error) {
	scope, err := authz.ScopeFor(authz.KindAppointment, p)
	if err != nil {
		return Appointment{}, err
	}
	if strings.TrimSpace(a.PatientID) == "" {
		return Appointment{}, fmt.Errorf("%w: patient is required", shared.ErrValidation)
	}
	if a.StartsAt.IsZero() || !a.EndsAt.After(a.StartsAt) {
		return Appointment{}, fmt.Errorf("%w: appointment window is invalid", shared.ErrValidation)
	}
	a.ClinicID = scope.ClinicID
	a.CreatedBy = p.ID
	a.Status = StatusScheduled
	return s.repo.Create(ctx, a)
}

// UpdateStatus moves an appointment through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, p authz.Principal, id, status string) (Appointment, error) {
	scope, err := authz.ScopeFor(authz.KindAppointment, p)
	if err != nil {
		return Appointment{}, shared.ErrNotFound
	}
	current, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		return Appointment{}, err
	}
	if !transitionAllowed(current.Status, status) {
		return Appointment{}, fmt.Errorf("%w: cannot move appointment from %s to %s", shared.ErrValidation, current.Status, status)
	}
	return s.repo.UpdateStatus(ctx, scope, id, status)
}

// Delete removes an appointment within the principal's scope.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id string) error {
	scope, err := authz.ScopeFor(authz.KindAppointment, p)
	if err != nil {
		return shared.ErrNotFound
	}
	return s.repo.Delete(ctx, scope, id)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
