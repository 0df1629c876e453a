package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/users"
)

// ErrResetTokenExpired signals a reset token past its expiry. It maps to
// 400 with an expiry-specific message rather than the generic one.
var ErrResetTokenExpired = fmt.Errorf("%w: reset token has expired, request a new one", shared.ErrValidation)

// UserStore is the subset of the users repository the auth module needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// Service wraps authentication and session lifecycle rules.
type Service struct {
	repo       Repository
	userStore  UserStore
	checker    *authz.Checker
	sessionTTL time.Duration
	resetTTL   time.Duration
	logger     *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, userStore UserStore, checker *authz.Checker, sessionTTL, resetTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		userStore:  userStore,
		checker:    checker,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		logger:     logger,
	}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IssueSession creates and persists a session for the user.
func (s *Service) IssueSession(ctx context.Context, userID, ip, ua string) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		IP:        ip,
		UserAgent: ua,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Resolve turns an opaque session token into a Principal. The user row is
// read fresh on every call so role and clinic edits take effect on the
// next request. An expired session is deleted opportunistically; the
// cleanup is best-effort and never fails the request on its own.
func (s *Service) Resolve(ctx context.Context, token string) (authz.Principal, error) {
	sess, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Principal{}, shared.ErrUnauthenticated
		}
		return authz.Principal{}, err
	}
	if sess.Expired(time.Now()) {
		if err := s.repo.DeleteSession(ctx, sess.ID); err != nil && s.logger != nil {
			s.logger.Warn("delete expired session", slog.Any("error", err))
		}
		return authz.Principal{}, shared.ErrUnauthenticated
	}
	user, err := s.userStore.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Principal{}, shared.ErrUnauthenticated
		}
		return authz.Principal{}, err
	}
	if !user.IsActive {
		return authz.Principal{}, shared.ErrUnauthenticated
	}
	return user.Principal(), nil
}

// Logout removes the session. Logging out with no session is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

// ListSessions enumerates the caller's own sessions.
func (s *Service) ListSessions(ctx context.Context, p authz.Principal) ([]Session, error) {
	return s.repo.ListSessionsByUser(ctx, p.ID)
}

// RevokeSession deletes one of the caller's sessions. A session owned by
// another user is refused with shared.ErrForbidden and the row is kept;
// revoking an already-revoked session succeeds as a no-op.
func (s *Service) RevokeSession(ctx context.Context, p authz.Principal, sessionID string) error {
	if err := s.checker.VerifyAccess(ctx, authz.KindSession, sessionID, p); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Already gone: revocation is idempotent.
			return nil
		}
		return err
	}
	return s.repo.DeleteSession(ctx, sessionID)
}

// RequestPasswordReset issues a one-time token for the account, if it
// exists. Unknown emails report success to the caller so accounts cannot
// be enumerated; the empty token return tells the mail layer to skip.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	now := time.Now().UTC()
	token := ResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTTL),
	}
	if err := s.repo.CreateResetToken(ctx, token); err != nil {
		return "", err
	}
	return token.Token, nil
}

// ConfirmPasswordReset validates the token and replaces the password.
// An expired token is deleted as a side effect and reported with an
// expiry-specific message. All of the user's sessions are revoked after
// a successful change.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	record, err := s.repo.GetResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: invalid reset token", shared.ErrValidation)
		}
		return err
	}
	if time.Now().After(record.ExpiresAt) {
		if err := s.repo.DeleteResetToken(ctx, record.Token); err != nil && s.logger != nil {
			s.logger.Warn("delete expired reset token", slog.Any("error", err))
		}
		return ErrResetTokenExpired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userStore.UpdatePassword(ctx, record.UserID, string(hash)); err != nil {
		return err
	}
	if err := s.repo.DeleteResetToken(ctx, record.Token); err != nil && s.logger != nil {
		s.logger.Warn("delete used reset token", slog.Any("error", err))
	}
	if err := s.repo.DeleteSessionsByUser(ctx, record.UserID); err != nil && s.logger != nil {
		s.logger.Warn("revoke sessions after password change", slog.Any("error", err))
	}
	return nil
}

var _ authz.PrincipalResolver = (*Service)(nil)
