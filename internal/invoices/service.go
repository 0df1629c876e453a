package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/shared"
)

// RepositoryPort defines data access methods for invoices.
type RepositoryPort interface {
	List(ctx context.Context, scope authz.Scope, page shared.Pagination) ([]Invoice, int, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	PatientClinic(ctx context.Context, patientID string) (string, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateStatus(ctx context.Context, scope authz.Scope, id, status string) (Invoice, error)
}

// IdempotencyPort guards replayed create requests. Delete releases a
// reserved key when the guarded operation fails.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles invoice business logic.
type Service struct {
	repo        RepositoryPort
	idempotency IdempotencyPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, idempotency IdempotencyPort) *Service {
	return &Service{repo: repo, idempotency: idempotency}
}

// List returns the invoices visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal, page, perPage int) ([]Invoice, shared.Pagination, error) {
	scope, err := authz.ScopeFor(authz.KindInvoice, p)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, 0)
	rows, total, err := s.repo.List(ctx, scope, pagination)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// Get fetches one invoice. The scope check happens after the load so a
// dangling patient reference is reported as an integrity failure rather
// than silently hidden; out-of-scope rows still surface as not found.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string) (Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	scope, err := authz.ScopeFor(authz.KindInvoice, p)
	if err != nil {
		return Invoice{}, shared.ErrNotFound
	}
	if inv.ClinicID != scope.ClinicID {
		return Invoice{}, shared.ErrNotFound
	}
	if scope.OwnerID != "" && inv.CreatedBy != scope.OwnerID {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, nil
}

// Create issues an invoice against a patient of the principal's clinic.
// A repeated Idempotency-Key returns a conflict instead of a duplicate
// row.
func (s *Service) Create(ctx context.Context, p authz.Principal, inv Invoice, idempotencyKey string) (Invoice, error) {
	if _, err := authz.ScopeFor(authz.KindInvoice, p); err != nil {
		return Invoice{}, err
	}
	if err := s.validate(inv); err != nil {
		return Invoice{}, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	clinicID, err := s.repo.PatientClinic(ctx, inv.PatientID)
	if err != nil {
		return Invoice{}, err
	}
	if !p.InClinic(clinicID) {
		// The patient exists in another tenant; do not confirm it.
		return Invoice{}, shared.ErrNotFound
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "invoices"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Invoice{}, shared.ErrDuplicate
			}
			return Invoice{}, err
		}
	}
	inv.CreatedBy = p.ID
	inv.ClinicID = clinicID
	if inv.Status == "" {
		inv.Status = StatusDraft
	}
	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		if idempotencyKey != "" && s.idempotency != nil {
			// Release the reservation so a retry with the same key is
			// not mistaken for a replay.
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return Invoice{}, err
	}
	return created, nil
}

// UpdateStatus transitions an invoice within the principal's scope.
func (s *Service) UpdateStatus(ctx context.Context, p authz.Principal, id, status string) (Invoice, error) {
	scope, err := authz.ScopeFor(authz.KindInvoice, p)
	if err != nil {
		return Invoice{}, shared.ErrNotFound
	}
	switch status {
	case StatusDraft, StatusIssued, StatusPaid, StatusVoid:
	default:
		return Invoice{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status)
	}
	return s.repo.UpdateStatus(ctx, scope, id, status)
}

func (s *Service) validate(inv Invoice) error {
	if strings.TrimSpace(inv.PatientID) == "" {
		return errors.New("patient is required")
	}
	if strings.TrimSpace(inv.Number) == "" {
		return errors.New("invoice number is required")
	}
	if inv.AmountCents < 0 {
		return errors.New("amount must not be negative")
	}
	return nil
}
