package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budget-tracker/internal/auth"
	"budget-tracker/internal/config"
	"budget-tracker/internal/entries"
	"budget-tracker/internal/handlers"
	"budget-tracker/internal/logging"
	"budget-tracker/internal/observability"
	"budget-tracker/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	logger := logging.New(cfg.LogFormat, level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DBPath, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Opened store", "driver", cfg.DBDriver)

	authSvc := auth.NewService(store, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL))
	if err := seedAdmin(ctx, cfg, store, authSvc, logger); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	h := handlers.NewHandlers(authSvc, entries.NewService(store), logger, metrics)

	srv := &http.Server{
		Addr: cfg.AppAddr,
		Handler: setupRouter(h, routerOptions{
			Logger:      logger,
			Metrics:     metrics,
			CORSOrigins: cfg.CORSOrigins,
			Production:  cfg.IsProduction(),
		}),
		ReadTimeout:    cfg.AppReadTimeout,
		WriteTimeout:   cfg.AppWriteTimeout,
		IdleTimeout:    cfg.AppIdleTimeout,
		MaxHeaderBytes: 1 << 16,
	}

	// Graceful shutdown handling
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting budget tracker server", "addr", cfg.AppAddr, "env", cfg.AppEnv)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	logger.Info("Server stopped gracefully")
	return nil
}

// seedAdmin creates the configured admin account on a fresh database.
func seedAdmin(ctx context.Context, cfg *config.Config, store storage.Store, authSvc *auth.Service, logger *slog.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	count, err := store.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, user, err := authSvc.Signup(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	logger.Info("Seeded admin user", "email", user.Email)
	return nil
}

type routerOptions struct {
	Logger      *slog.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	Production  bool
}

func setupRouter(h *handlers.Handlers, opts routerOptions) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)
	r.Use(secureMiddleware.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.Health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/entries", h.ListEntries)
		r.Post("/entries", h.CreateEntry)
		r.Put("/entries/{id}", h.UpdateEntry)
		r.Delete("/entries/{id}", h.DeleteEntry)
		r.Get("/summary", h.Statistics)
	})

	r.Get("/routes", handlers.Routes(r))

	return r
}
