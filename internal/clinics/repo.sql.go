package clinics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clinicColumns = `id, name, is_active, subscription_status, created_at, updated_at`

func scanClinic(row pgx.Row) (Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.IsActive, &c.SubscriptionStatus, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Clinic{}, shared.ErrNotFound
		}
		return Clinic{}, err
	}
	return c, nil
}

// GetByID fetches a clinic.
func (r *Repository) GetByID(ctx context.Context, id string) (Clinic, error) {
	return scanClinic(r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id))
}

// List returns all clinics ordered by name. Operator channel only.
func (r *Repository) List(ctx context.Context) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clinicColumns+` FROM clinics ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateName renames a clinic.
func (r *Repository) UpdateName(ctx context.Context, id, name string) (Clinic, error) {
	return scanClinic(r.pool.QueryRow(ctx,
		`UPDATE clinics SET name = $2, updated_at = $3 WHERE id = $1 RETURNING `+clinicColumns,
		id, name, time.Now().UTC()))
}

// SetLifecycle flips the activation flag and subscription status together.
func (r *Repository) SetLifecycle(ctx context.Context, id string, isActive bool, status string) (Clinic, error) {
	return scanClinic(r.pool.QueryRow(ctx,
		`UPDATE clinics SET is_active = $2, subscription_status = $3, updated_at = $4 WHERE id = $1 RETURNING `+clinicColumns,
		id, isActive, status, time.Now().UTC()))
}
