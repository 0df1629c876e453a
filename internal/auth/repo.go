package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
	ListSessionsByUser(ctx context.Context, userID string) ([]Session, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	CreateResetToken(ctx context.Context, token ResetToken) error
	GetResetToken(ctx context.Context, token string) (ResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateSession persists a new login session.
func (r *PGRepository) CreateSession(ctx context.Context, sess Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.UserID,
		sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(),
		pgtype.Text{String: sess.IP, Valid: sess.IP != ""},
		pgtype.Text{String: sess.UserAgent, Valid: sess.UserAgent != ""})
	return err
}

// GetSession fetches a session by its token.
func (r *PGRepository) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		sess   Session
		ip, ua pgtype.Text
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at, ip, ua FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &ip, &ua)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, shared.ErrNotFound
		}
		return Session{}, err
	}
	sess.IP = ip.String
	sess.UserAgent = ua.String
	return sess, nil
}

// DeleteSession removes a session. Deleting an absent session is a no-op,
// never an error, so concurrent revocations stay idempotent.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteSessionsByUser removes every session a user holds.
func (r *PGRepository) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// ListSessionsByUser returns a user's sessions, newest first.
func (r *PGRepository) ListSessionsByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, created_at, expires_at, ip, ua FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []Session
	for rows.Next() {
		var (
			sess   Session
			ip, ua pgtype.Text
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &ip, &ua); err != nil {
			return nil, err
		}
		sess.IP = ip.String
		sess.UserAgent = ua.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteExpiredSessions purges sessions past their expiry.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CreateResetToken persists a one-time reset token.
func (r *PGRepository) CreateResetToken(ctx context.Context, token ResetToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO password_reset_tokens (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		token.Token, token.UserID, token.CreatedAt.UTC(), token.ExpiresAt.UTC())
	return err
}

// GetResetToken fetches a reset token.
func (r *PGRepository) GetResetToken(ctx context.Context, token string) (ResetToken, error) {
	var t ResetToken
	err := r.pool.QueryRow(ctx,
		`SELECT token, user_id, created_at, expires_at FROM password_reset_tokens WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResetToken{}, shared.ErrNotFound
		}
		return ResetToken{}, err
	}
	return t, nil
}

// DeleteResetToken removes a reset token.
func (r *PGRepository) DeleteResetToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE token = $1`, token)
	return err
}

// DeleteExpiredResetTokens purges tokens past their expiry.
func (r *PGRepository) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
