package shared

import "errors"

// Sentinel errors shared across modules. Handlers never branch on
// anything finer grained than these; httpx maps them onto the wire.
var (
	// ErrUnauthenticated indicates no valid session accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated caller lacking permission,
	// used only where disclosing existence is acceptable.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a resource that is absent or out of scope.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrIntegrity indicates inconsistent related records, e.g. a dangling
	// parent reference. Surfaces as a generic internal error.
	ErrIntegrity = errors.New("data integrity violation")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when the CSRF token is missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
