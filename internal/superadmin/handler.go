package superadmin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/ratelimit"
	"github.com/clinicore/clinicore/internal/shared"
)

// CookieConfig describes the operator session cookie. Its name must
// differ from the regular session cookie so the two privilege domains
// never collide.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Handler wires the operator control-plane endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auditSvc  *audit.Service
	metrics   observability.Reader
	limiter   *ratelimit.Limiter
	cookie    CookieConfig
	mw        Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, auditSvc *audit.Service, metrics observability.Reader, limiter *ratelimit.Limiter, cookie CookieConfig) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		auditSvc:  auditSvc,
		metrics:   metrics,
		limiter:   limiter,
		cookie:    cookie,
		mw:        Middleware{Service: service, CookieName: cookie.Name, Logger: logger},
		validator: validator.New(),
	}
}

// MountRoutes registers the operator routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithSuperAdminAuth())
		r.Get("/clinics", h.listClinics)
		r.Get("/clinics/{id}", h.getClinic)
		r.Post("/clinics/{id}/suspend", h.suspendClinic)
		r.Post("/clinics/{id}/reactivate", h.reactivateClinic)
		r.Get("/audit", h.auditTimeline)
		r.Get("/metrics/historical", h.historicalMetrics)
		r.Get("/metrics/realtime", h.realtimeMetrics)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	result := h.limiter.Check(r.Context(), ratelimit.ClientIdentifier(r), ratelimit.BucketSuperAdminLogin)
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds()+0.5)))
		httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "retry later")
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.ID,
		Path:     "/superadmin",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
	httpx.JSON(w, http.StatusOK, map[string]any{"admin_id": sess.AdminID, "expires_at": sess.ExpiresAt})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("operator logout", slog.Any("error", err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/superadmin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listClinics(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListClinics(r.Context())
	if err != nil {
		h.logger.Error("list clinics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clinics": result})
}

func (h *Handler) getClinic(w http.ResponseWriter, r *http.Request) {
	clinic, counters, err := h.service.GetClinicOverview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clinic": clinic, "counters": counters})
}

func (h *Handler) suspendClinic(w http.ResponseWriter, r *http.Request) {
	op, ok := OperatorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	clinic, err := h.service.SuspendClinic(r.Context(), op, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clinic)
}

func (h *Handler) reactivateClinic(w http.ResponseWriter, r *http.Request) {
	op, ok := OperatorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	clinic, err := h.service.ReactivateClinic(r.Context(), op, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clinic)
}

func (h *Handler) auditTimeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := audit.TimelineFilters{
		Actor:  query.Get("actor"),
		Entity: query.Get("entity"),
		Action: query.Get("action"),
	}
	filters.Page, _ = strconv.Atoi(query.Get("page"))
	filters.PageSize, _ = strconv.Atoi(query.Get("page_size"))
	if from := query.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.From = t
		}
	}
	if to := query.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.To = t
		}
	}
	result, err := h.auditSvc.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) historicalMetrics(w http.ResponseWriter, r *http.Request) {
	h.metricsResponse(w, r, h.metrics.HistoricalMetrics, 24*time.Hour)
}

func (h *Handler) realtimeMetrics(w http.ResponseWriter, r *http.Request) {
	h.metricsResponse(w, r, h.metrics.RealTimeMetrics, 5*time.Minute)
}

func (h *Handler) metricsResponse(w http.ResponseWriter, r *http.Request, read func(context.Context, time.Duration) ([]observability.MetricPoint, error), defaultRange time.Duration) {
	timeRange := defaultRange
	if raw := r.URL.Query().Get("range"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "range must be a positive duration")
			return
		}
		timeRange = parsed
	}
	points, err := read(r.Context(), timeRange)
	if err != nil {
		h.logger.Error("read metrics", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"points": points})
}
