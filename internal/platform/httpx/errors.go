package httpx

import (
	"errors"
	"net/http"

	"github.com/clinicore/clinicore/internal/shared"
)

// RespondError maps domain errors to HTTP responses.
//
// Scope violations surface as 404 so that out-of-scope rows are
// indistinguishable from absent ones; only ownership mismatches where
// disclosure is acceptable arrive here as shared.ErrForbidden.
// Anything unrecognised collapses to a generic 500 with no detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "insufficient permission")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", "resource already exists")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
