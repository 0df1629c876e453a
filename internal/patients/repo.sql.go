package patients

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Every read applies
// the caller's scope in SQL, so rows outside the tenant (or outside the
// owner, for external users) are never materialised.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, clinic_id, created_by, first_name, last_name, email, phone, date_of_birth, created_at, updated_at`

func scanPatient(row pgx.Row) (Patient, error) {
	var (
		p   Patient
		dob pgtype.Date
	)
	err := row.Scan(&p.ID, &p.ClinicID, &p.CreatedBy, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &dob, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, shared.ErrNotFound
		}
		return Patient{}, err
	}
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	return p, nil
}

// List returns scoped patients with the total row count.
func (r *Repository) List(ctx context.Context, scope authz.Scope, page shared.Pagination) ([]Patient, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE clinic_id = $1 AND ($2 = '' OR created_by = $2)`,
		scope.ClinicID, scope.OwnerID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+patientColumns+`
		 FROM patients
		 WHERE clinic_id = $1 AND ($2 = '' OR created_by = $2)
		 ORDER BY last_name, first_name
		 OFFSET $3 LIMIT $4`,
		scope.ClinicID, scope.OwnerID, page.Offset(), page.PerPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

// GetByID fetches one scoped patient. A row outside scope is
// indistinguishable from an absent one.
func (r *Repository) GetByID(ctx context.Context, scope authz.Scope, id string) (Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientColumns+`
		 FROM patients
		 WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)`,
		id, scope.ClinicID, scope.OwnerID))
}

// Create inserts a patient.
func (r *Repository) Create(ctx context.Context, p Patient) (Patient, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	var dob pgtype.Date
	if p.DateOfBirth != nil {
		dob = pgtype.Date{Time: *p.DateOfBirth, Valid: true}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO patients (`+patientColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ClinicID, p.CreatedBy, p.FirstName, p.LastName, p.Email, p.Phone, dob, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Patient{}, err
	}
	return p, nil
}

// Update modifies a scoped patient.
func (r *Repository) Update(ctx context.Context, scope authz.Scope, p Patient) (Patient, error) {
	var dob pgtype.Date
	if p.DateOfBirth != nil {
		dob = pgtype.Date{Time: *p.DateOfBirth, Valid: true}
	}
	return scanPatient(r.pool.QueryRow(ctx,
		`UPDATE patients
		 SET first_name = $4, last_name = $5, email = $6, phone = $7, date_of_birth = $8, updated_at = $9
		 WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)
		 RETURNING `+patientColumns,
		p.ID, scope.ClinicID, scope.OwnerID, p.FirstName, p.LastName, p.Email, p.Phone, dob, time.Now().UTC()))
}

// Delete removes a scoped patient.
func (r *Repository) Delete(ctx context.Context, scope authz.Scope, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM patients WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)`,
		id, scope.ClinicID, scope.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
