package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	database "github.com/wandertours/wandertours/app/db"
	appLogger "github.com/wandertours/wandertours/app/logger"
	"github.com/wandertours/wandertours/app/mailer"
	"github.com/wandertours/wandertours/config"
	"github.com/wandertours/wandertours/internal/api/auth"
	"github.com/wandertours/wandertours/internal/api/user"
	"github.com/wandertours/wandertours/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		// Startup misconfiguration (e.g. missing signing key) is fatal.
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(cfg.IsProduction())
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	connURL, err := database.ConnectionURL(&cfg)
	if err != nil {
		logger.Error("Failed to build database URL", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(connURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(connURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency wiring ---
	userStore := auth.NewPostgresUserStore(pool, logger)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	codec := auth.NewTokenCodec(cfg.JWT.SecretKey, cfg.JWT.TokenTTL, cfg.JWT.Issuer)
	smtpMailer := mailer.NewSMTPMailer(&cfg, logger)

	authService := auth.NewAuthService(userStore, smtpMailer, hasher, codec, cfg.Auth.ResetTokenTTL, logger)
	authHandler := auth.NewAuthHandler(authService, &cfg, logger)
	userHandler := user.NewUserHandler(userStore, logger)
	gate := auth.NewGate(codec, userStore, cfg.JWT.CookieName, logger)

	apiRouter := router.SetupRouter(&router.Config{
		Logger:      logger,
		Gate:        gate,
		AuthHandler: authHandler,
		UserHandler: userHandler,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", apiRouter)

	// --- HTTP server ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}
	logger.Info("Application shut down complete.")
}
