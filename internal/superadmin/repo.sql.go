package superadmin

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/shared"
)

// Repository defines persistence operations for the operator channel.
type Repository interface {
	FindOperatorByEmail(ctx context.Context, email string) (*Operator, error)
	FindOperatorByID(ctx context.Context, id string) (*Operator, error)
	CreateSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	ClinicCounters(ctx context.Context, clinicID string) (TenantCounters, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) scanOperator(row pgx.Row) (*Operator, error) {
	var op Operator
	err := row.Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.IsActive, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

// FindOperatorByEmail fetches an operator account by email.
func (r *PGRepository) FindOperatorByEmail(ctx context.Context, email string) (*Operator, error) {
	return r.scanOperator(r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_active, created_at FROM superadmins WHERE email = $1`, email))
}

// FindOperatorByID fetches an operator account by id.
func (r *PGRepository) FindOperatorByID(ctx context.Context, id string) (*Operator, error) {
	return r.scanOperator(r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_active, created_at FROM superadmins WHERE id = $1`, id))
}

// CreateSession persists a new operator session.
func (r *PGRepository) CreateSession(ctx context.Context, sess Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO superadmin_sessions (id, admin_id, created_at, expires_at, ip) VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.AdminID, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(), sess.IP)
	return err
}

// GetSession fetches an operator session by its token.
func (r *PGRepository) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, admin_id, created_at, expires_at, COALESCE(ip, '') FROM superadmin_sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.AdminID, &sess.CreatedAt, &sess.ExpiresAt, &sess.IP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, shared.ErrNotFound
		}
		return Session{}, err
	}
	return sess, nil
}

// DeleteSession removes an operator session; absent rows are a no-op.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM superadmin_sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions purges operator sessions past their expiry.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM superadmin_sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClinicCounters counts a tenant's users and patients.
func (r *PGRepository) ClinicCounters(ctx context.Context, clinicID string) (TenantCounters, error) {
	var counters TenantCounters
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users WHERE clinic_id = $1),
			(SELECT COUNT(*) FROM patients WHERE clinic_id = $1)`, clinicID).
		Scan(&counters.Users, &counters.Patients)
	if err != nil {
		return TenantCounters{}, err
	}
	return counters, nil
}

var _ Repository = (*PGRepository)(nil)
