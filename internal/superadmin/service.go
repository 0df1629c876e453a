package superadmin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/clinics"
	"github.com/clinicore/clinicore/internal/shared"
)

// ClinicStore is the subset of the clinics repository the operator
// channel needs for tenant lifecycle.
type ClinicStore interface {
	GetByID(ctx context.Context, id string) (clinics.Clinic, error)
	List(ctx context.Context) ([]clinics.Clinic, error)
	SetLifecycle(ctx context.Context, id string, isActive bool, status string) (clinics.Clinic, error)
}

// Service wraps operator authentication, sessions and tenant lifecycle.
type Service struct {
	repo       Repository
	clinicRepo ClinicStore
	auditLog   audit.Recorder
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, clinicRepo ClinicStore, auditLog audit.Recorder, sessionTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		clinicRepo: clinicRepo,
		auditLog:   auditLog,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Login validates operator credentials and issues an operator session.
// The login itself is audited.
func (s *Service) Login(ctx context.Context, email, password, ip string) (Session, error) {
	op, err := s.repo.FindOperatorByEmail(ctx, email)
	if err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	if !op.IsActive {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		AdminID:   op.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		IP:        ip,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	s.record(ctx, audit.Entry{
		ActorID:  op.ID,
		Action:   ActionLogin,
		Entity:   "superadmin",
		EntityID: op.ID,
		Meta:     map[string]any{"ip": ip},
	})
	return sess, nil
}

// Logout removes the session and audits the action, but only if a
// session was actually found: logging out with no session is a silent
// no-op, not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		ActorID:  sess.AdminID,
		Action:   ActionLogout,
		Entity:   "superadmin",
		EntityID: sess.AdminID,
	})
	return nil
}

// Resolve validates an operator session token. An expired session is
// treated identically to an anonymous caller, with an opportunistic
// best-effort delete. The token namespace is disjoint from regular user
// sessions: there is no way for one resolver to accept the other's token.
func (s *Service) Resolve(ctx context.Context, token string) (*Operator, error) {
	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if sess.Expired(time.Now()) {
		if err := s.repo.DeleteSession(ctx, sess.ID); err != nil && s.logger != nil {
			s.logger.Warn("delete expired operator session", slog.Any("error", err))
		}
		return nil, shared.ErrUnauthenticated
	}
	op, err := s.repo.FindOperatorByID(ctx, sess.AdminID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if !op.IsActive {
		return nil, shared.ErrUnauthenticated
	}
	return op, nil
}

// ListClinics returns every tenant.
func (s *Service) ListClinics(ctx context.Context) ([]clinics.Clinic, error) {
	return s.clinicRepo.List(ctx)
}

// GetClinic returns one tenant.
func (s *Service) GetClinic(ctx context.Context, id string) (clinics.Clinic, error) {
	return s.clinicRepo.GetByID(ctx, id)
}

// GetClinicOverview returns one tenant together with its footprint
// counters.
func (s *Service) GetClinicOverview(ctx context.Context, id string) (clinics.Clinic, TenantCounters, error) {
	clinic, err := s.clinicRepo.GetByID(ctx, id)
	if err != nil {
		return clinics.Clinic{}, TenantCounters{}, err
	}
	counters, err := s.repo.ClinicCounters(ctx, id)
	if err != nil {
		return clinics.Clinic{}, TenantCounters{}, err
	}
	return clinic, counters, nil
}

// SuspendClinic deactivates a tenant and marks its subscription
// suspended, then appends exactly one audit entry. The audit write
// happens strictly after the mutation; if it fails the mutation stands
// and the failure is surfaced server-side only.
func (s *Service) SuspendClinic(ctx context.Context, actor *Operator, clinicID string) (clinics.Clinic, error) {
	clinic, err := s.clinicRepo.SetLifecycle(ctx, clinicID, false, clinics.SubscriptionSuspended)
	if err != nil {
		return clinics.Clinic{}, err
	}
	s.record(ctx, audit.Entry{
		ActorID:  actor.ID,
		Action:   ActionClinicSuspended,
		Entity:   "clinic",
		EntityID: clinic.ID,
		Meta:     map[string]any{"clinic_name": clinic.Name},
	})
	return clinic, nil
}

// ReactivateClinic restores a suspended tenant.
func (s *Service) ReactivateClinic(ctx context.Context, actor *Operator, clinicID string) (clinics.Clinic, error) {
	clinic, err := s.clinicRepo.SetLifecycle(ctx, clinicID, true, clinics.SubscriptionActive)
	if err != nil {
		return clinics.Clinic{}, err
	}
	s.record(ctx, audit.Entry{
		ActorID:  actor.ID,
		Action:   ActionClinicReactivated,
		Entity:   "clinic",
		EntityID: clinic.ID,
		Meta:     map[string]any{"clinic_name": clinic.Name},
	})
	return clinic, nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if err := s.auditLog.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Error("audit write failed",
			slog.String("action", entry.Action),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}
