// Package app wires the portal together: configuration, observability,
// the persistence gateway, the core services, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"qtportal/internal/auth"
	"qtportal/internal/config"
	"qtportal/internal/directory"
	"qtportal/internal/entitlement"
	"qtportal/internal/infrastructure"
	customMiddleware "qtportal/internal/middleware"
	"qtportal/internal/store"
	handlers "qtportal/internal/transport/http"
	"qtportal/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	Gateway       store.Gateway
	Directory     *directory.Directory
	Entitlement   *entitlement.Store
	Tokens        *auth.TokenService
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the application around an already-loaded
// configuration. Tests use this with a memory gateway config.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("app", contracts.GetVersionString()),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(
		infrastructure.DefaultOTelConfig(contracts.Version, environment()), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	gateway, err := store.NewFileGateway(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize persistence gateway: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		Gateway:       gateway,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the core services and seeds the bootstrap
// admin.
func (a *Application) initializeServices() error {
	a.Directory = directory.New(a.Gateway, a.Logger, directory.Options{
		PasswordMinLength:  a.Config.Auth.PasswordMinLength,
		BcryptCost:         a.Config.Auth.BcryptCost,
		MentorIDRetryLimit: a.Config.Licensing.MentorIDRetryLimit,
	})

	a.Entitlement = entitlement.New(a.Gateway, a.Logger, entitlement.Options{
		MaxLicenses:    a.Config.Licensing.MaxLicenses,
		CodeRetryLimit: a.Config.Licensing.CodeRetryLimit,
	})

	a.Tokens = auth.NewTokenService(a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL)

	ctx := context.Background()
	if err := a.Directory.Bootstrap(ctx, directory.BootstrapAdmin{
		Email:       a.Config.Bootstrap.AdminEmail,
		Password:    a.Config.Bootstrap.AdminPassword,
		DisplayName: a.Config.Bootstrap.AdminDisplayName,
	}); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	return nil
}

// setupRouter assembles the middleware chain and mounts all handlers.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	rateLimiter := customMiddleware.NewRateLimiter(
		a.Config.Server.RateLimitRPS, a.Config.Server.RateLimitBurst, a.Logger)

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(rateLimiter.Handler)

	authHandler := handlers.NewAuthHandler(a.Directory, a.Tokens, a.Logger)
	profileHandler := handlers.NewProfileHandler(a.Directory, a.Logger)
	adminHandler := handlers.NewAdminHandler(a.Directory, a.Logger)
	productHandler := handlers.NewProductHandler(a.Entitlement, a.Logger)
	licenseHandler := handlers.NewLicenseHandler(a.Entitlement, a.Logger)
	statsHandler := handlers.NewStatsHandler(a.Entitlement, a.Logger)
	healthHandler := handlers.NewHealthHandler()

	r.Route("/api", func(r chi.Router) {
		r.Mount("/healthz", healthHandler.Routes())
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.RequireAuth(a.Tokens, a.Logger))

			r.Mount("/profile", profileHandler.Routes())
			r.Mount("/products", productHandler.Routes())
			r.Mount("/licenses", licenseHandler.Routes())
			r.Mount("/stats", statsHandler.Routes())

			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.RequireAdmin(a.Logger))
				r.Mount("/admin", adminHandler.Routes())
			})
		})
	})

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer builds the HTTP server from configuration.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the server and blocks until shutdown completes. SIGINT and
// SIGTERM trigger a graceful drain bounded by the configured timeout.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if a.OTelProviders != nil {
			if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
				a.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
			}
		}
		infrastructure.CloseLogFile()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.Logger.Info("shutdown complete")
	return nil
}

// environment returns the deployment environment label.
func environment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
