package superadmin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/clinics"
	"github.com/clinicore/clinicore/internal/shared"
)

type stubRepo struct {
	operators map[string]*Operator
	sessions  map[string]Session
	counters  map[string]TenantCounters
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		operators: make(map[string]*Operator),
		sessions:  make(map[string]Session),
		counters:  make(map[string]TenantCounters),
	}
}

func (r *stubRepo) FindOperatorByEmail(ctx context.Context, email string) (*Operator, error) {
	for _, op := range r.operators {
		if op.Email == email {
			copied := *op
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubRepo) FindOperatorByID(ctx context.Context, id string) (*Operator, error) {
	op, ok := r.operators[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *op
	return &copied, nil
}

func (r *stubRepo) CreateSession(ctx context.Context, sess Session) error {
	r.sessions[sess.ID] = sess
	return nil
}

func (r *stubRepo) GetSession(ctx context.Context, id string) (Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, shared.ErrNotFound
	}
	return sess, nil
}

func (r *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
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

func (r *stubRepo) ClinicCounters(ctx context.Context, clinicID string) (TenantCounters, error) {
	return r.counters[clinicID], nil
}

type stubClinicStore struct {
	clinics map[string]clinics.Clinic
}

func (s *stubClinicStore) GetByID(ctx context.Context, id string) (clinics.Clinic, error) {
	c, ok := s.clinics[id]
	if !ok {
		return clinics.Clinic{}, shared.ErrNotFound
	}
	return c, nil
}

func (s *stubClinicStore) List(ctx context.Context) ([]clinics.Clinic, error) {
	var out []clinics.Clinic
	for _, c := range s.clinics {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubClinicStore) SetLifecycle(ctx context.Context, id string, isActive bool, status string) (clinics.Clinic, error) {
	c, ok := s.clinics[id]
	if !ok {
		return clinics.Clinic{}, shared.ErrNotFound
	}
	c.IsActive = isActive
	c.SubscriptionStatus = status
	s.clinics[id] = c
	return c, nil
}

type recordingAudit struct {
	entries []audit.Entry
	err     error
}

func (r *recordingAudit) Record(ctx context.Context, entry audit.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func operatorHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T) (*Service, *stubRepo, *stubClinicStore, *recordingAudit) {
	t.Helper()
	repo := newStubRepo()
	store := &stubClinicStore{clinics: make(map[string]clinics.Clinic)}
	auditLog := &recordingAudit{}
	svc := NewService(repo, store, auditLog, 4*time.Hour, nil)
	return svc, repo, store, auditLog
}

func TestLoginIssuesSessionAndAudits(t *testing.T) {
	svc, repo, _, auditLog := newTestService(t)
	repo.operators["op1"] = &Operator{ID: "op1", Email: "root@platform.test", PasswordHash: operatorHash(t, "hunter2"), IsActive: true}

	sess, err := svc.Login(context.Background(), "root@platform.test", "hunter2", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "op1", sess.AdminID)
	assert.NotEmpty(t, sess.ID)

	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, ActionLogin, auditLog.entries[0].Action)
	assert.Equal(t, "op1", auditLog.entries[0].ActorID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, repo, _, auditLog := newTestService(t)
	repo.operators["op1"] = &Operator{ID: "op1", Email: "root@platform.test", PasswordHash: operatorHash(t, "hunter2"), IsActive: true}

	_, err := svc.Login(context.Background(), "root@platform.test", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "ghost@platform.test", "hunter2", "10.0.0.1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	assert.Empty(t, auditLog.entries, "failed logins leave no session audit trail")
	assert.Empty(t, repo.sessions)
}

func TestLoginRejectsInactiveOperator(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.operators["op1"] = &Operator{ID: "op1", Email: "root@platform.test", PasswordHash: operatorHash(t, "hunter2"), IsActive: false}

	_, err := svc.Login(context.Background(), "root@platform.test", "hunter2", "10.0.0.1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveRoundTrip(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.operators["op1"] = &Operator{ID: "op1", Email: "root@platform.test", PasswordHash: operatorHash(t, "hunter2"), IsActive: true}

	sess, err := svc.Login(context.Background(), "root@platform.test", "hunter2", "10.0.0.1")
	require.NoError(t, err)

	op, err := svc.Resolve(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "op1", op.ID)

	require.NoError(t, svc.Logout(context.Background(), sess.ID))

	_, err = svc.Resolve(context.Background(), sess.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated, "logout revokes the token immediately")
}

func TestResolveExpiredSessionIsDeleted(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.operators["op1"] = &Operator{ID: "op1", IsActive: true}
	repo.sessions["old"] = Session{ID: "old", AdminID: "op1", ExpiresAt: time.Now().Add(-time.Minute)}

	_, err := svc.Resolve(context.Background(), "old")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	_, stillThere := repo.sessions["old"]
	assert.False(t, stillThere)
}

func TestLogoutWithoutSessionIsSilent(t *testing.T) {
	svc, _, _, auditLog := newTestService(t)

	require.NoError(t, svc.Logout(context.Background(), "no-such-session"))
	require.NoError(t, svc.Logout(context.Background(), ""))
	assert.Empty(t, auditLog.entries, "no session, no audit entry")
}

func TestLogoutAuditsOnce(t *testing.T) {
	svc, repo, _, auditLog := newTestService(t)
	repo.sessions["tok"] = Session{ID: "tok", AdminID: "op1", ExpiresAt: time.Now().Add(time.Hour)}

	require.NoError(t, svc.Logout(context.Background(), "tok"))
	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, ActionLogout, auditLog.entries[0].Action)
}

func TestSuspendClinicAuditsExactlyOnce(t *testing.T) {
	svc, _, store, auditLog := newTestService(t)
	store.clinics["c1"] = clinics.Clinic{ID: "c1", Name: "North Ridge Dental", IsActive: true, SubscriptionStatus: clinics.SubscriptionActive}
	actor := &Operator{ID: "op1"}

	clinic, err := svc.SuspendClinic(context.Background(), actor, "c1")
	require.NoError(t, err)
	assert.False(t, clinic.IsActive)
	assert.Equal(t, clinics.SubscriptionSuspended, clinic.SubscriptionStatus)

	require.Len(t, auditLog.entries, 1)
	entry := auditLog.entries[0]
	assert.Equal(t, ActionClinicSuspended, entry.Action)
	assert.Equal(t, "op1", entry.ActorID)
	assert.Equal(t, "c1", entry.EntityID)
	assert.Equal(t, "North Ridge Dental", entry.Meta["clinic_name"])
}

func TestSuspendUnknownClinicWritesNoAudit(t *testing.T) {
	svc, _, _, auditLog := newTestService(t)
	actor := &Operator{ID: "op1"}

	_, err := svc.SuspendClinic(context.Background(), actor, "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, auditLog.entries, "audit records follow successful mutations only")
}

func TestSuspendClinicSurvivesAuditFailure(t *testing.T) {
	svc, _, store, auditLog := newTestService(t)
	store.clinics["c1"] = clinics.Clinic{ID: "c1", Name: "North Ridge Dental", IsActive: true, SubscriptionStatus: clinics.SubscriptionActive}
	auditLog.err = context.DeadlineExceeded
	actor := &Operator{ID: "op1"}

	clinic, err := svc.SuspendClinic(context.Background(), actor, "c1")
	require.NoError(t, err, "the mutation stands even when the audit write fails")
	assert.False(t, clinic.IsActive)
}

func TestReactivateClinic(t *testing.T) {
	svc, _, store, auditLog := newTestService(t)
	store.clinics["c1"] = clinics.Clinic{ID: "c1", Name: "North Ridge Dental", IsActive: false, SubscriptionStatus: clinics.SubscriptionSuspended}
	actor := &Operator{ID: "op1"}

	clinic, err := svc.ReactivateClinic(context.Background(), actor, "c1")
	require.NoError(t, err)
	assert.True(t, clinic.IsActive)
	assert.Equal(t, clinics.SubscriptionActive, clinic.SubscriptionStatus)

	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, ActionClinicReactivated, auditLog.entries[0].Action)
}

func TestGetClinicOverview(t *testing.T) {
	svc, repo, store, _ := newTestService(t)
	store.clinics["c1"] = clinics.Clinic{ID: "c1", Name: "Northside", IsActive: true}
	repo.counters["c1"] = TenantCounters{Users: 4, Patients: 120}

	clinic, counters, err := svc.GetClinicOverview(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Northside", clinic.Name)
	assert.Equal(t, int64(4), counters.Users)
	assert.Equal(t, int64(120), counters.Patients)

	_, _, err = svc.GetClinicOverview(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
