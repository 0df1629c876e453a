package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/users"
)

type stubRepo struct {
	sessions    map[string]Session
	resetTokens map[string]ResetToken

	createSessionErr error
	getSessionErr    error
	deleteSessionErr error
	deleteCalls      int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		sessions:    make(map[string]Session),
		resetTokens: make(map[string]ResetToken),
	}
}

func (r *stubRepo) CreateSession(ctx context.Context, sess Session) error {
	if r.createSessionErr != nil {
		return r.createSessionErr
	}
	r.sessions[sess.ID] = sess
	return nil
}

func (r *stubRepo) GetSession(ctx context.Context, id string) (Session, error) {
	if r.getSessionErr != nil {
		return Session{}, r.getSessionErr
	}
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, shared.ErrNotFound
	}
	return sess, nil
}

func (r *stubRepo) DeleteSession(ctx context.Context, id string) error {
	r.deleteCalls++
	if r.deleteSessionErr != nil {
		return r.deleteSessionErr
	}
	delete(r.sessions, id)
	return nil
}

func (r *stubRepo) DeleteSessionsByUser(ctx context.Context, userID string) error {
	for id, sess := range r.sessions {
		if sess.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *stubRepo) ListSessionsByUser(ctx context.Context, userID string) ([]Session, error) {
	var out []Session
	for _, sess := range r.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (r *stubRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, sess := range r.sessions {
		if sess.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) CreateResetToken(ctx context.Context, token ResetToken) error {
	r.resetTokens[token.Token] = token
	return nil
}

func (r *stubRepo) GetResetToken(ctx context.Context, token string) (ResetToken, error) {
	record, ok := r.resetTokens[token]
	if !ok {
		return ResetToken{}, shared.ErrNotFound
	}
	return record, nil
}

func (r *stubRepo) DeleteResetToken(ctx context.Context, token string) error {
	delete(r.resetTokens, token)
	return nil
}

func (r *stubRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for token, record := range r.resetTokens {
		if now.After(record.ExpiresAt) {
			delete(r.resetTokens, token)
			n++
		}
	}
	return n, nil
}

type stubUserStore struct {
	users     map[string]*users.User
	passwords map[string]string
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]*users.User), passwords: make(map[string]string)}
}

func (s *stubUserStore) add(u users.User) {
	s.users[u.ID] = &u
}

func (s *stubUserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubUserStore) UpdatePassword(ctx context.Context, id, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type sessionAccessStore struct {
	repo *stubRepo
}

func (s sessionAccessStore) ResourceAttrs(ctx context.Context, kind authz.ResourceKind, id string) (authz.ResourceAttrs, error) {
	sess, ok := s.repo.sessions[id]
	if !ok {
		return authz.ResourceAttrs{}, shared.ErrNotFound
	}
	return authz.ResourceAttrs{OwnerID: sess.UserID}, nil
}

func strPtr(s string) *string { return &s }

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T) (*Service, *stubRepo, *stubUserStore) {
	t.Helper()
	repo := newStubRepo()
	store := newStubUserStore()
	checker := authz.NewChecker(sessionAccessStore{repo: repo})
	svc := NewService(repo, store, checker, time.Hour, 30*time.Minute, nil)
	return svc, repo, store
}

func TestAuthenticate(t *testing.T) {
	svc, _, store := newTestService(t)
	store.add(users.User{ID: "u1", Email: "doc@clinic.test", PasswordHash: hashOf(t, "swordfish"), Role: authz.RoleStaff, ClinicID: strPtr("c1"), IsActive: true})

	user, err := svc.Authenticate(context.Background(), "doc@clinic.test", "swordfish")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = svc.Authenticate(context.Background(), "doc@clinic.test", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost@clinic.test", "swordfish")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials, "unknown accounts look identical to bad passwords")
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc, _, store := newTestService(t)
	store.add(users.User{ID: "u1", Email: "doc@clinic.test", PasswordHash: hashOf(t, "swordfish"), IsActive: false})

	_, err := svc.Authenticate(context.Background(), "doc@clinic.test", "swordfish")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestIssueAndResolveSession(t *testing.T) {
	svc, _, store := newTestService(t)
	store.add(users.User{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1"), IsActive: true})

	sess, err := svc.IssueSession(context.Background(), "u1", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	principal, err := svc.Resolve(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", principal.ID)
	assert.Equal(t, authz.RoleStaff, principal.Role)
	require.NotNil(t, principal.ClinicID)
	assert.Equal(t, "c1", *principal.ClinicID)
}

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveWrappedNotFound(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.getSessionErr = fmt.Errorf("scan session: %w", shared.ErrNotFound)

	_, err := svc.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated, "repositories may wrap the sentinel with context")
}

func TestResolveExpiredSessionIsDeleted(t *testing.T) {
	svc, repo, store := newTestService(t)
	store.add(users.User{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1"), IsActive: true})
	repo.sessions["old"] = Session{
		ID:        "old",
		UserID:    "u1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	_, err := svc.Resolve(context.Background(), "old")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, stillThere := repo.sessions["old"]
	assert.False(t, stillThere, "expired sessions are removed on sight")
}

func TestResolveDeactivatedUser(t *testing.T) {
	svc, repo, store := newTestService(t)
	store.add(users.User{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1"), IsActive: false})
	repo.sessions["tok"] = Session{ID: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	_, err := svc.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated, "deactivation invalidates live sessions immediately")
}

func TestRevokeSessionOwn(t *testing.T) {
	svc, repo, store := newTestService(t)
	store.add(users.User{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1"), IsActive: true})
	repo.sessions["mine"] = Session{ID: "mine", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	p := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}
	require.NoError(t, svc.RevokeSession(context.Background(), p, "mine"))
	assert.Empty(t, repo.sessions)
}

func TestRevokeSessionIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	p := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}

	require.NoError(t, svc.RevokeSession(context.Background(), p, "already-gone"))
	assert.Zero(t, repo.deleteCalls, "nothing to delete for an absent session")
}

func TestRevokeSessionOfAnotherUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.sessions["theirs"] = Session{ID: "theirs", UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)}

	p := authz.Principal{ID: "u1", Role: authz.RoleStaff, ClinicID: strPtr("c1")}
	err := svc.RevokeSession(context.Background(), p, "theirs")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, stillThere := repo.sessions["theirs"]
	assert.True(t, stillThere, "refused revocation leaves the session intact")
}

func TestLogoutWithoutToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.Logout(context.Background(), ""))
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc, repo, _ := newTestService(t)

	token, err := svc.RequestPasswordReset(context.Background(), "ghost@clinic.test")
	require.NoError(t, err, "account enumeration must not be possible")
	assert.Empty(t, token)
	assert.Empty(t, repo.resetTokens)
}

func TestConfirmPasswordResetHappyPath(t *testing.T) {
	svc, repo, store := newTestService(t)
	store.add(users.User{ID: "u1", Email: "doc@clinic.test", PasswordHash: hashOf(t, "old"), Role: authz.RoleStaff, ClinicID: strPtr("c1"), IsActive: true})
	repo.sessions["live"] = Session{ID: "live", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	token, err := svc.RequestPasswordReset(context.Background(), "doc@clinic.test")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token, "brand-new"))

	_, err = svc.Authenticate(context.Background(), "doc@clinic.test", "brand-new")
	assert.NoError(t, err)
	assert.Empty(t, repo.sessions, "all sessions are revoked after a password change")
	assert.Empty(t, repo.resetTokens, "the token is single use")
}

func TestConfirmPasswordResetExpiredToken(t *testing.T) {
	svc, repo, store := newTestService(t)
	store.add(users.User{ID: "u1", Email: "doc@clinic.test", PasswordHash: hashOf(t, "old"), IsActive: true})
	repo.resetTokens["stale"] = ResetToken{
		Token:     "stale",
		UserID:    "u1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	err := svc.ConfirmPasswordReset(context.Background(), "stale", "new")
	assert.ErrorIs(t, err, ErrResetTokenExpired)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.resetTokens, "expired tokens are cleaned up on use")
}

func TestConfirmPasswordResetUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ConfirmPasswordReset(context.Background(), "bogus", "new")
	assert.ErrorIs(t, err, shared.ErrValidation)
}
