package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicore/clinicore/internal/appointments"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/clinics"
	"github.com/clinicore/clinicore/internal/documents"
	"github.com/clinicore/clinicore/internal/invoices"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/patients"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/superadmin"
	"github.com/clinicore/clinicore/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	CSRFManager *shared.CSRFManager

	AuthMiddleware authz.Middleware

	AuthHandler         *auth.Handler
	ClinicsHandler      *clinics.Handler
	PatientsHandler     *patients.Handler
	InvoicesHandler     *invoices.Handler
	DocumentsHandler    *documents.Handler
	AppointmentsHandler *appointments.Handler
	UsersHandler        *users.Handler
	SuperAdminHandler   *superadmin.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Clinicore defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		CSRFManager: params.CSRFManager,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountPublicRoutes(r)
		params.AuthHandler.MountProtectedRoutes(r, params.AuthMiddleware)
	})

	r.Route("/clinics", params.ClinicsHandler.MountRoutes)
	r.Route("/patients", params.PatientsHandler.MountRoutes)
	r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/documents", params.DocumentsHandler.MountRoutes)

	r.Route("/superadmin", params.SuperAdminHandler.MountRoutes)

	return r
}
