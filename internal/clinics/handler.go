package clinics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler manages clinic settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers clinic routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermClinicRead))
		r.Get("/current", h.current)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermClinicUpdate))
		r.Put("/current", h.updateSettings)
	})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	clinic, err := h.service.Current(r.Context(), principal)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clinic)
}

type updateSettingsRequest struct {
	Name string `json:"name"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req updateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	clinic, err := h.service.UpdateSettings(r.Context(), principal, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clinic)
}
