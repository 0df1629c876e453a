package documents

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

const documentColumns = `id, clinic_id, patient_id, created_by, file_name, content_type, size_bytes, storage_key, created_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.ClinicID, &d.PatientID, &d.CreatedBy, &d.FileName, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, shared.ErrNotFound
		}
		return Document{}, err
	}
	return d, nil
}

// ListByPatient returns scoped documents for one patient.
func (r *Repository) ListByPatient(ctx context.Context, scope authz.Scope, patientID string) ([]Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE patient_id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)
		 ORDER BY created_at DESC`,
		patientID, scope.ClinicID, scope.OwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// GetByID fetches one scoped document.
func (r *Repository) GetByID(ctx context.Context, scope authz.Scope, id string) (Document, error) {
	return scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)`,
		id, scope.ClinicID, scope.OwnerID))
}

// Create inserts a document record.
func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	d.ID = uuid.NewString()
	d.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ClinicID, d.PatientID, d.CreatedBy, d.FileName, d.ContentType, d.SizeBytes, d.StorageKey, d.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

// Delete removes a scoped document record.
func (r *Repository) Delete(ctx context.Context, scope authz.Scope, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND clinic_id = $2 AND ($3 = '' OR created_by = $3)`,
		id, scope.ClinicID, scope.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
