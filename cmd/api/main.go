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

	"github.com/BradenHooton/pingate/internal/auth"
	"github.com/BradenHooton/pingate/internal/background"
	"github.com/BradenHooton/pingate/internal/clients/gotrue"
	"github.com/BradenHooton/pingate/internal/config"
	"github.com/BradenHooton/pingate/internal/database"
	"github.com/BradenHooton/pingate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/pingate/internal/middleware"
	"github.com/BradenHooton/pingate/internal/repositories"
	"github.com/BradenHooton/pingate/internal/routes"
	"github.com/BradenHooton/pingate/internal/services"
	"github.com/BradenHooton/pingate/pkg/broker"
	pkghttp "github.com/BradenHooton/pingate/pkg/http"
	pkglogger "github.com/BradenHooton/pingate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stdout, pkglogger.ParseLevel(cfg.Server.LogLevel))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("identity_provider", cfg.Identity.Provider))

	if cfg.Gate.Pin == "" {
		logger.Warn("APP_PIN is not set; every PIN submission will fail")
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	// Initialize repositories
	attemptRepo := repositories.NewPinAttemptRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	// Identity provider for the shared account
	var identity services.IdentityProvider
	switch cfg.Identity.Provider {
	case config.IdentityProviderGoTrue:
		identity = gotrue.NewClient(cfg.Identity)
	default:
		tokenManager := auth.NewTokenManager(
			cfg.Identity.JWTSecret,
			cfg.Identity.AccessTokenExpiry,
			cfg.Identity.RefreshTokenExpiry,
		)
		identity = services.NewLocalIdentityProvider(repositories.NewUserRepository(db), tokenManager, logger)
	}

	credentialService, err := services.NewCredentialService(
		identity,
		cfg.Identity.SharedAccountEmail,
		cfg.Identity.SharedAccountSecret,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize credential service", slog.Any("error", err))
		os.Exit(1)
	}

	// Lockout state
	policy := services.LockoutPolicy{
		MaxAttempts:        cfg.Gate.MaxAttempts,
		InitialLockMinutes: cfg.Gate.InitialLockMinutes,
	}
	lockoutStore := services.NewLockoutStore(settingsRepo, policy, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Gate.FailureDelayMs,
		RandomDelayMs: cfg.Gate.FailureJitterMs,
	})
	auditLogger := pkglogger.NewAuditLogger(logger)

	gateService := services.NewGateService(
		services.GateConfig{
			Pin:              cfg.Gate.Pin,
			AttemptRetention: cfg.Gate.AttemptRetention,
		},
		attemptRepo,
		lockoutStore,
		policy,
		credentialService,
		timingDelay,
		auditLogger,
		logger,
	)

	// Lockout alerts
	var notifiers services.MultiNotifier
	if cfg.Alert.SESEnabled() {
		sesCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesNotifier, err := services.NewSESLockoutNotifier(sesCtx, cfg.Alert.AWSRegion, cfg.Alert.FromAddress, cfg.Alert.ToAddress, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize SES notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifiers = append(notifiers, sesNotifier)
	}

	var producer *broker.Producer
	if cfg.Alert.KafkaEnabled() {
		producer = broker.NewProducer(logger, cfg.Alert.KafkaBrokers, cfg.Alert.KafkaTopic)
		notifiers = append(notifiers, producer)
	}

	if len(notifiers) > 0 {
		gateService.SetNotifier(notifiers)
	}

	adminService := services.NewAdminService(identity, lockoutStore, auditLogger, logger)

	// Trusted proxies
	ipConfig, invalid := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	for _, entry := range invalid {
		logger.Warn("ignoring invalid trusted proxy", slog.String("entry", entry))
	}

	// Initialize handlers
	gateHandler := handlers.NewGateHandler(gateService, adminService, ipConfig, logger)
	healthHandler := handlers.NewHealthHandler(db, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig()))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, gateHandler, healthHandler, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Gate.RequestsPerMinute,
		IPConfig:          ipConfig,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start attempt cleanup
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	cleanupManager := background.NewCleanupManager(attemptRepo, cfg.Gate.AttemptRetention, cfg.Gate.CleanupSchedule, logger)
	if err := cleanupManager.Start(cleanupCtx); err != nil {
		logger.Error("failed to start cleanup manager", slog.Any("error", err))
		os.Exit(1)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	cleanupCancel()
	cleanupManager.Stop()

	if producer != nil {
		producer.Close()
	}

	logger.Info("server stopped gracefully")
}
