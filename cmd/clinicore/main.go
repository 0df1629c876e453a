package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/appointments"
	"github.com/clinicore/clinicore/internal/audit"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/clinics"
	"github.com/clinicore/clinicore/internal/documents"
	"github.com/clinicore/clinicore/internal/invoices"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/patients"
	"github.com/clinicore/clinicore/internal/platform/cache"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/ratelimit"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/superadmin"
	"github.com/clinicore/clinicore/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	limiter := ratelimit.NewLimiter(redisClient, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	auditLogger := audit.NewLogger(dbpool)
	metrics := observability.NewMetrics()

	accessStore := authz.NewPGAccessStore(dbpool)
	checker := authz.NewChecker(accessStore)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, usersRepo, checker, cfg.SessionTTL, cfg.PasswordResetTTL, logger)

	authMW := authz.Middleware{
		Resolver:   authService,
		CookieName: cfg.SessionCookie,
		Logger:     logger,
	}

	authHandler := auth.NewHandler(logger, authService, limiter, csrfManager, auth.CookieConfig{
		Name:   cfg.SessionCookie,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.SessionTTL,
	})

	clinicsRepo := clinics.NewRepository(dbpool)
	clinicsService := clinics.NewService(clinicsRepo)
	clinicsHandler := clinics.NewHandler(logger, clinicsService, authMW)

	patientsRepo := patients.NewRepository(dbpool)
	patientsService := patients.NewService(patientsRepo)
	patientsHandler := patients.NewHandler(logger, patientsService, authMW)

	invoicesRepo := invoices.NewRepository(dbpool)
	invoicesService := invoices.NewService(invoicesRepo, idempotencyStore)
	invoicesHandler := invoices.NewHandler(logger, invoicesService, authMW)

	documentsRepo := documents.NewRepository(dbpool)
	documentsService := documents.NewService(documentsRepo)
	documentsHandler := documents.NewHandler(logger, documentsService, authMW)

	appointmentsRepo := appointments.NewRepository(dbpool)
	appointmentsService := appointments.NewService(appointmentsRepo)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService, authMW)

	usersHandler := users.NewHandler(logger, usersService, authMW)

	auditRepo := audit.NewPGRepository(dbpool)
	auditService := audit.NewService(auditRepo)

	metricsReader := observability.NewStoreReader(dbpool, redisClient, 10*time.Minute)

	adminRepo := superadmin.NewRepository(dbpool)
	adminService := superadmin.NewService(adminRepo, clinicsRepo, auditLogger, cfg.AdminSessionTTL, logger)
	adminHandler := superadmin.NewHandler(logger, adminService, auditService, metricsReader, limiter, superadmin.CookieConfig{
		Name:   cfg.AdminCookie,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.AdminSessionTTL,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		CSRFManager:         csrfManager,
		AuthMiddleware:      authMW,
		AuthHandler:         authHandler,
		ClinicsHandler:      clinicsHandler,
		PatientsHandler:     patientsHandler,
		InvoicesHandler:     invoicesHandler,
		DocumentsHandler:    documentsHandler,
		AppointmentsHandler: appointmentsHandler,
		UsersHandler:        usersHandler,
		SuperAdminHandler:   adminHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
