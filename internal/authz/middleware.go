package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// PrincipalResolver turns an opaque session token into a Principal.
// Implemented by the auth service; resolution reads the user row fresh
// on every request so role edits take effect immediately.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// Middleware wraps protected routes. A route not wrapped by WithAuth is,
// by convention, public.
type Middleware struct {
	Resolver   PrincipalResolver
	CookieName string
	Logger     *slog.Logger
}

// WithAuth authorizes the request before the handler runs: resolve the
// principal (401 on failure), check every required permission (403 on
// failure), then invoke the handler with the principal in context. The
// steps are strictly ordered; nothing after resolution starts before it
// completes.
func (m Middleware) WithAuth(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer m.recoverPanic(w, r)

			token := m.sessionToken(r)
			if token == "" {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}

			principal, err := m.Resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, shared.ErrUnauthenticated) {
					httpx.RespondError(w, shared.ErrUnauthenticated)
					return
				}
				m.logError(r, "resolve principal", err)
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}

			for _, perm := range perms {
				if !HasPermission(principal.Role, perm) {
					httpx.RespondError(w, shared.ErrForbidden)
					return
				}
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(m.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (m Middleware) recoverPanic(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		if m.Logger != nil {
			m.Logger.Error("handler panic",
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (m Middleware) logError(r *http.Request, msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}
