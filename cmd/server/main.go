package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/nats-io/nats.go"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/robwestplumbing/sitecms/internal/config"
	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/contentsync"
	"github.com/robwestplumbing/sitecms/internal/database"
	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/robwestplumbing/sitecms/internal/handlers"
	"github.com/robwestplumbing/sitecms/internal/imaging"
	"github.com/robwestplumbing/sitecms/internal/logging"
	"github.com/robwestplumbing/sitecms/internal/middleware"
	"github.com/robwestplumbing/sitecms/internal/pages"
	"github.com/robwestplumbing/sitecms/internal/routes"
	"github.com/robwestplumbing/sitecms/internal/services"
	"github.com/robwestplumbing/sitecms/internal/session"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	if cfg.SiteDefaultsPath != "" {
		if err := content.LoadDefaults(cfg.SiteDefaultsPath); err != nil {
			slog.Error("failed to load site defaults", "path", cfg.SiteDefaultsPath, "error", err)
			os.Exit(1)
		}
		slog.Info("site defaults loaded", "path", cfg.SiteDefaultsPath)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.Default().Handler(),
		pgLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Document store
	store, closeStore := openDocumentStore(ctx, cfg)

	// Refresh sessions
	sessions, closeSessions := openSessionStore(cfg)

	// Services
	authService := services.NewAuthService(database.DB, cfg, sessions)
	if err := authService.SeedEditor(ctx, cfg.BootstrapEditorEmail, cfg.BootstrapEditorPassword); err != nil {
		slog.Error("bootstrap editor seeding failed", "error", err)
	}
	revisionService := services.NewRevisionService(database.DB)
	reviewService := services.NewReviewService(store, services.NewModerationService())
	normalizer := imaging.NewNormalizer(cfg.ImageWorkers)
	images := handlers.ImageSettings{
		Image: imaging.Options{MaxDimension: cfg.ImageMaxDimension, Quality: cfg.ImageQuality, MaxBytes: cfg.ImageMaxBytes},
		Logo:  imaging.Options{MaxDimension: cfg.LogoMaxDimension, Quality: cfg.ImageQuality, MaxBytes: cfg.ImageMaxBytes},
	}
	galleryService := services.NewGalleryService(store, normalizer, images.Image)
	assistant := services.NewGeminiAssistant(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	if !assistant.IsAvailable() {
		slog.Warn("GEMINI_API_KEY not set; assistant disabled")
	}

	// Content synchronization
	manager := contentsync.NewManager(store, contentsync.ManagerOptions{
		NoticeTTL:   cfg.SaveNoticeTTL,
		IdleTimeout: cfg.EditorSessionIdle,
		Recorder:    revisionService,
		Logger:      logging.Component("contentsync"),
	})
	if err := manager.Start(ctx); err != nil {
		slog.Error("content synchronizer failed to start", "error", err)
		os.Exit(1)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    26 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, database.DB, routes.Handlers{
		Health:    handlers.NewHealthHandler(manager),
		Auth:      handlers.NewAuthHandler(authService),
		Content:   handlers.NewContentHandler(ctx, manager, pages.NewRenderer()),
		Editor:    handlers.NewEditorHandler(ctx, manager, normalizer, images),
		Gallery:   handlers.NewGalleryHandler(galleryService),
		Reviews:   handlers.NewReviewHandler(ctx, reviewService),
		Assistant: handlers.NewAssistantHandler(assistant),
		Revisions: handlers.NewRevisionHandler(revisionService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	// Ends open event streams before the listener drains.
	stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	manager.Close()
	closeStore()
	closeSessions()

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

// openDocumentStore connects to JetStream KV when NATS_URL is set and falls
// back to process memory otherwise.
func openDocumentStore(ctx context.Context, cfg *config.Config) (docstore.Store, func()) {
	if cfg.NATSURL == "" {
		slog.Warn("NATS_URL not set; site content is kept in memory and lost on restart")
		store := docstore.NewMemoryStore()
		return store, func() { _ = store.Close() }
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("sitecms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		slog.Error("nats connection failed", "url", cfg.NATSURL, "error", err)
		os.Exit(1)
	}
	store, err := docstore.NewKVStore(ctx, nc, cfg.NATSBucket)
	if err != nil {
		slog.Error("document store unavailable", "bucket", cfg.NATSBucket, "error", err)
		os.Exit(1)
	}
	slog.Info("document store connected", "bucket", cfg.NATSBucket)
	return store, func() { _ = store.Close() }
}

// openSessionStore keeps refresh sessions in Redis when REDIS_URL is set and
// in Postgres otherwise.
func openSessionStore(cfg *config.Config) (session.Store, func()) {
	if cfg.RedisURL == "" {
		return session.NewDBStore(database.DB), func() {}
	}
	store, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		slog.Error("redis session store failed", "error", err)
		os.Exit(1)
	}
	slog.Info("refresh sessions stored in redis")
	return store, func() { _ = store.Close() }
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
