package superadmin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

type operatorContextKey struct{}

// ContextWithOperator stores the resolved operator in context.
func ContextWithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// OperatorFromContext extracts the operator from context.
func OperatorFromContext(ctx context.Context) (*Operator, bool) {
	op, ok := ctx.Value(operatorContextKey{}).(*Operator)
	return op, ok && op != nil
}

// Middleware guards operator routes. It mirrors the regular
// authorization middleware but resolves operator sessions and consults
// no permission registry: within its channel the operator may do
// everything.
type Middleware struct {
	Service    *Service
	CookieName string
	Logger     *slog.Logger
}

// WithSuperAdminAuth resolves the operator session before the handler
// runs; anything short of a valid, unexpired session is a 401.
func (m Middleware) WithSuperAdminAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(m.CookieName)
			if err != nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			op, err := m.Service.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, shared.ErrUnauthenticated) {
					httpx.RespondError(w, shared.ErrUnauthenticated)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("resolve operator session", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithOperator(r.Context(), op)))
		})
	}
}
