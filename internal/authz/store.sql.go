package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/shared"
)

// PGAccessStore resolves resource ownership attributes from PostgreSQL.
type PGAccessStore struct {
	pool *pgxpool.Pool
}

// NewPGAccessStore constructs the store.
func NewPGAccessStore(pool *pgxpool.Pool) *PGAccessStore {
	return &PGAccessStore{pool: pool}
}

// ResourceAttrs fetches the clinic and owner of one resource instance.
func (s *PGAccessStore) ResourceAttrs(ctx context.Context, kind ResourceKind, id string) (ResourceAttrs, error) {
	switch kind {
	case KindPatient:
		return s.scanAttrs(ctx, `SELECT clinic_id, created_by FROM patients WHERE id = $1`, id)
	case KindDocument:
		return s.scanAttrs(ctx, `SELECT clinic_id, created_by FROM documents WHERE id = $1`, id)
	case KindAppointment:
		return s.scanAttrs(ctx, `SELECT clinic_id, created_by FROM appointments WHERE id = $1`, id)
	case KindInvoice:
		return s.invoiceAttrs(ctx, id)
	case KindClinic:
		return s.clinicAttrs(ctx, id)
	case KindSession:
		return s.sessionAttrs(ctx, id)
	}
	return ResourceAttrs{}, fmt.Errorf("authz: unknown resource kind %q", kind)
}

func (s *PGAccessStore) scanAttrs(ctx context.Context, query, id string) (ResourceAttrs, error) {
	var clinicID, ownerID string
	if err := s.pool.QueryRow(ctx, query, id).Scan(&clinicID, &ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceAttrs{}, shared.ErrNotFound
		}
		return ResourceAttrs{}, err
	}
	return ResourceAttrs{ClinicID: &clinicID, OwnerID: ownerID}, nil
}

// invoiceAttrs derives the invoice's clinic through its patient. An
// invoice whose patient row is gone is a data-integrity failure, not a
// not-found.
func (s *PGAccessStore) invoiceAttrs(ctx context.Context, id string) (ResourceAttrs, error) {
	var (
		clinicID pgtype.Text
		ownerID  string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT p.clinic_id, i.created_by
		 FROM invoices i
		 LEFT JOIN patients p ON p.id = i.patient_id
		 WHERE i.id = $1`, id).Scan(&clinicID, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceAttrs{}, shared.ErrNotFound
		}
		return ResourceAttrs{}, err
	}
	if !clinicID.Valid {
		return ResourceAttrs{}, fmt.Errorf("%w: invoice %s has no patient", shared.ErrIntegrity, id)
	}
	return ResourceAttrs{ClinicID: &clinicID.String, OwnerID: ownerID}, nil
}

func (s *PGAccessStore) clinicAttrs(ctx context.Context, id string) (ResourceAttrs, error) {
	var clinicID string
	if err := s.pool.QueryRow(ctx, `SELECT id FROM clinics WHERE id = $1`, id).Scan(&clinicID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceAttrs{}, shared.ErrNotFound
		}
		return ResourceAttrs{}, err
	}
	return ResourceAttrs{ClinicID: &clinicID}, nil
}

func (s *PGAccessStore) sessionAttrs(ctx context.Context, id string) (ResourceAttrs, error) {
	var ownerID string
	if err := s.pool.QueryRow(ctx, `SELECT user_id FROM sessions WHERE id = $1`, id).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceAttrs{}, shared.ErrNotFound
		}
		return ResourceAttrs{}, err
	}
	return ResourceAttrs{OwnerID: ownerID}, nil
}

var _ AccessStore = (*PGAccessStore)(nil)
