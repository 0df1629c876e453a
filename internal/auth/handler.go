package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/ratelimit"
	"github.com/clinicore/clinicore/internal/shared"
)

// CookieConfig describes the session cookie issued on login.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	limiter   *ratelimit.Limiter
	csrf      *shared.CSRFManager
	cookie    CookieConfig
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, limiter *ratelimit.Limiter, csrf *shared.CSRFManager, cookie CookieConfig) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		limiter:   limiter,
		csrf:      csrf,
		cookie:    cookie,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the unauthenticated auth routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/password-reset", h.handlePasswordResetRequest)
	r.Post("/password-reset/confirm", h.handlePasswordResetConfirm)
}

// MountProtectedRoutes registers routes that require a resolved principal.
func (h *Handler) MountProtectedRoutes(r chi.Router, mw authz.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.WithAuth())
		r.Post("/logout", h.handleLogout)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.WithAuth(authz.PermSessionRead))
		r.Get("/sessions", h.handleListSessions)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.WithAuth(authz.PermSessionRevoke))
		r.Delete("/sessions/{id}", h.handleRevokeSession)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID    string  `json:"user_id"`
	Role      string  `json:"role"`
	ClinicID  *string `json:"clinic_id,omitempty"`
	CSRFToken string  `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, ratelimit.BucketLogin) {
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

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	sess, err := h.service.IssueSession(r.Context(), user.ID, r.RemoteAddr, r.UserAgent())
	if err != nil {
		h.logger.Error("issue session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.setSessionCookie(w, sess.ID)
	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID:    user.ID,
		Role:      string(user.Role),
		ClinicID:  user.ClinicID,
		CSRFToken: h.csrf.IssueToken(sess.ID),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	sessions, err := h.service.ListSessions(r.Context(), principal)
	if err != nil {
		h.logger.Error("list sessions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.RevokeSession(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, ratelimit.BucketPasswordReset) {
		return
	}
	var req passwordResetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "a valid email is required")
		return
	}
	token, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("request password reset", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if token != "" {
		// Delivery happens out of band; the token never appears in the response.
		h.logger.Info("password reset token issued", slog.String("email", req.Email))
	}
	w.WriteHeader(http.StatusAccepted)
}

type passwordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirm
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token and a password of at least 8 characters are required")
		return
	}
	if err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, shared.ErrValidation) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("confirm password reset", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) allow(w http.ResponseWriter, r *http.Request, bucket ratelimit.Bucket) bool {
	result := h.limiter.Check(r.Context(), ratelimit.ClientIdentifier(r), bucket)
	if result.Allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds()+0.5)))
	httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "retry later")
	return false
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(h.cookie.MaxAge),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
