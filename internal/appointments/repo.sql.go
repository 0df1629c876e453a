package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/authz"
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

const appointmentColumns = `id, clinic_id, patient_id, created_by, starts_at, ends_at, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.CreatedBy, &a.StartsAt, &a.EndsAt, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, shared.ErrNotFound
		}
		return Appointment{}, err
	}
	return a, nil
}

// List returns scoped appointments within a time window.
func (r *Repository) List(ctx context.Context, scope authz.Scope, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE clinic_id = $1 AND ($2 = '' OR created_by = $2)
		   AND starts_at >= $3 AND starts_at < $4
		 ORDER BY starts_at`,
		scope.ClinicID, scope.OwnerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// GetByID fetches one scoped appointment.
func (r *Repository) GetByID(ctx context.Context, scope authz.Scope, id string) (Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)`,
		id, scope.ClinicID, scope.OwnerID))
}

// Create inserts an appointment.
func (r *Repository) Create(ctx context.Context, a Appointment) (Appointment, error) {
	a.ID = uuid.NewString()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ClinicID, a.PatientID, a.CreatedBy, a.StartsAt, a.EndsAt, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return Appointment{}, err
	}
	return a, nil
}

// UpdateStatus transitions a scoped appointment's status.
func (r *Repository) UpdateStatus(ctx context.Context, scope authz.Scope, id, status string) (Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET status = $4, updated_at = now()
		 WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)
		 RETURNING `+appointmentColumns,
		id, scope.ClinicID, scope.OwnerID, status))
}

// Delete removes a scoped appointment.
func (r *Repository) Delete(ctx context.Context, scope authz.Scope, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM appointments WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)`,
		id, scope.ClinicID, scope.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
