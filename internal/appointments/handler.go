package appointments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler exposes scheduling endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermAppointmentRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermAppointmentCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermAppointmentUpdate))
		r.Patch("/{id}/status", h.updateStatus)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 0, 30)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Window", "from must be an RFC 3339 timestamp")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Window", "to must be an RFC 3339 timestamp")
			return
		}
		to = parsed
	}
	appts, err := h.service.List(r.Context(), p, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	appt, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

type createAppointmentRequest struct {
	PatientID string    `json:"patient_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Notes     string    `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	var req createAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	appt, err := h.service.Create(r.Context(), p, Appointment{
		PatientID: req.PatientID,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Notes:     req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appt)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	switch req.Status {
	case StatusCompleted, StatusCancelled:
	default:
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	appt, err := h.service.UpdateStatus(r.Context(), p, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
