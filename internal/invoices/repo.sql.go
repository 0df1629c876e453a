package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// Repository provides PostgreSQL backed persistence. The invoice's
// tenant is always resolved through its patient, so every query joins
// patients; a dangling patient reference surfaces as an integrity error.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceSelect = `
	SELECT i.id, i.patient_id, p.clinic_id, i.created_by, i.number, i.amount_cents, i.status, i.issued_at, i.created_at, i.updated_at
	FROM invoices i
	LEFT JOIN patients p ON p.id = i.patient_id`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv      Invoice
		clinicID pgtype.Text
	)
	err := row.Scan(&inv.ID, &inv.PatientID, &clinicID, &inv.CreatedBy, &inv.Number, &inv.AmountCents, &inv.Status, &inv.IssuedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.ErrNotFound
		}
		return Invoice{}, err
	}
	if !clinicID.Valid {
		return Invoice{}, fmt.Errorf("%w: invoice %s has no patient", shared.ErrIntegrity, inv.ID)
	}
	inv.ClinicID = clinicID.String
	return inv, nil
}

// List returns scoped invoices with the total row count.
func (r *Repository) List(ctx context.Context, scope authz.Scope, page shared.Pagination) ([]Invoice, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices i JOIN patients p ON p.id = i.patient_id
		 WHERE p.clinic_id = $1 AND ($2 = '' OR i.created_by = $2)`,
		scope.ClinicID, scope.OwnerID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		invoiceSelect+`
		 WHERE p.clinic_id = $1 AND ($2 = '' OR i.created_by = $2)
		 ORDER BY i.issued_at DESC
		 OFFSET $3 LIMIT $4`,
		scope.ClinicID, scope.OwnerID, page.Offset(), page.PerPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, inv)
	}
	return result, total, rows.Err()
}

// GetByID fetches one invoice by id without a scope filter so that the
// dangling-patient case is distinguishable; scope is enforced after the
// scan by the caller via the returned clinic.
func (r *Repository) GetByID(ctx context.Context, id string) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
}

// PatientClinic resolves a patient's tenant, for pre-insert checks.
func (r *Repository) PatientClinic(ctx context.Context, patientID string) (string, error) {
	var clinicID string
	err := r.pool.QueryRow(ctx, `SELECT clinic_id FROM patients WHERE id = $1`, patientID).Scan(&clinicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return clinicID, nil
}

// Create inserts an invoice.
func (r *Repository) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	now := time.Now().UTC()
	inv.ID = uuid.NewString()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = now
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invoices (id, patient_id, created_by, number, amount_cents, status, issued_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.PatientID, inv.CreatedBy, inv.Number, inv.AmountCents, inv.Status, inv.IssuedAt, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// UpdateStatus transitions a scoped invoice.
func (r *Repository) UpdateStatus(ctx context.Context, scope authz.Scope, id, status string) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx,
		`UPDATE invoices i SET status = $4, updated_at = $5
		 FROM patients p
		 WHERE i.id = $1 AND p.id = i.patient_id AND p.clinic_id = $2 AND ($3 = '' OR i.created_by = $3)
		 RETURNING i.id, i.patient_id, p.clinic_id, i.created_by, i.number, i.amount_cents, i.status, i.issued_at, i.created_at, i.updated_at`,
		id, scope.ClinicID, scope.OwnerID, status, time.Now().UTC()))
}
