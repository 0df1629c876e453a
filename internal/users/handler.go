package users

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// Handler exposes user directory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermUserRead))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth())
		r.Get("/me", h.me)
		r.Get("/me/permissions", h.permissions)
	})
}

type userResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	ClinicID   string `json:"clinic_id,omitempty"`
	IsExternal bool   `json:"is_external"`
}

func toResponse(u User) userResponse {
	resp := userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		IsExternal: u.IsExternal,
	}
	if u.ClinicID != nil {
		resp.ClinicID = *u.ClinicID
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	users, err := h.service.ListColleagues(r.Context(), p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toResponse(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": resp})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	u, err := h.service.Get(r.Context(), p.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*u))
}

// permissions lets clients discover which operations to offer without
// trial requests that end in 403s.
func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	perms := authz.RolePermissions(p.Role)
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        p.Role,
		"permissions": perms,
	})
}
