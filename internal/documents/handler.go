package documents

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// Handler exposes document metadata endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler constructs a handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermDocumentRead))
		r.Get("/", h.listByPatient)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermDocumentCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithAuth(authz.PermDocumentDelete))
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) listByPatient(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	patientID := r.URL.Query().Get("patient_id")
	if patientID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Missing Filter", "patient_id query parameter is required")
		return
	}
	docs, err := h.service.ListByPatient(r.Context(), p, patientID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	doc, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type createDocumentRequest struct {
	PatientID   string `json:"patient_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	var req createDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Create(r.Context(), p, Document{
		PatientID:   req.PatientID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		StorageKey:  req.StorageKey,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
