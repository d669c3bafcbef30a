// Package main provides the issuance registry server entry point.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/usgportal/issuance-registry/internal/config"
	"github.com/usgportal/issuance-registry/internal/db"
	"github.com/usgportal/issuance-registry/pkg/audit"
	"github.com/usgportal/issuance-registry/pkg/auth"
	"github.com/usgportal/issuance-registry/pkg/comments"
	"github.com/usgportal/issuance-registry/pkg/departments"
	"github.com/usgportal/issuance-registry/pkg/issuance"
	"github.com/usgportal/issuance-registry/pkg/reports"
)

func main() {
	var (
		listenAddr string
		configPath string
		dbType     string
		dbDSN      string
	)

	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.StringVar(&configPath, "config", "config.yaml", "Path to server config")
	flag.StringVar(&dbType, "db-type", "", "Database type (sqlite, postgres, or mysql; overrides config)")
	flag.StringVar(&dbDSN, "db-dsn", "", "Database connection string (overrides config)")
	flag.Parse()

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbType != "" {
		cfg.DBType = dbType
	}
	if dbDSN != "" {
		cfg.DBDSN = dbDSN
	}

	logger.Info("starting issuance registry",
		"listen", cfg.Listen,
		"dbType", cfg.DBType,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := db.Connect(cfg.DBType, cfg.DBDSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	auditStore := audit.NewStore(gormDB)
	issuanceStore := issuance.NewStore(gormDB)
	registry := departments.NewRegistry(gormDB)
	commentSvc := comments.NewService(gormDB, issuanceStore, auditStore, logger)
	scheduleStore := reports.NewScheduleStore(gormDB)

	for _, migrate := range []func() error{
		auditStore.AutoMigrate,
		issuanceStore.AutoMigrate,
		registry.AutoMigrate,
		commentSvc.AutoMigrate,
		scheduleStore.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	issuanceSvc := issuance.NewService(issuanceStore, auditStore, registry, logger)
	aggregator := reports.NewAggregator(gormDB)

	authenticator, err := auth.New(auth.Config{
		PublicKeyPath: cfg.JWT.PublicKeyPath,
		RoleClaim:     cfg.JWT.RoleClaim,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to configure authentication", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// Public surface.
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Optional)
			r.Get("/issuances", issuance.PublishedHandler(issuanceSvc))
			r.Get("/issuances/{id}/comments", comments.ListHandler(commentSvc))
			r.Get("/issuances/{id}/comments/count", comments.CountHandler(commentSvc))
		})

		// Authenticated comment writes; author-or-admin rules apply in
		// the service.
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Required)
			r.Post("/issuances/{id}/comments", comments.CreateHandler(commentSvc))
			r.Put("/comments/{id}", comments.UpdateHandler(commentSvc))
			r.Delete("/comments/{id}", comments.DeleteHandler(commentSvc))
		})

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(authenticator.AdminOnly)
			r.Mount("/admin/issuances", issuance.AdminRouter(issuanceSvc))
			r.Mount("/admin/audit-logs", audit.Router(auditStore))
			r.Mount("/admin/departments", departments.Router(registry))
			r.Mount("/admin/report-schedules", reports.ScheduleRouter(scheduleStore))
			r.Mount("/reports", reports.Router(aggregator, auditStore))
		})
	})

	auditCfg := audit.ConfigFromEnv()
	if auditCfg.Enabled {
		worker := audit.NewRetentionWorker(auditStore, auditCfg.RetentionDays, logger)
		go worker.Run(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
