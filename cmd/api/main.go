package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auditflow/internal/config"
	"auditflow/internal/database"
	"auditflow/internal/database/migration"
	"auditflow/internal/event"
	handlers "auditflow/internal/http/handler"
	"auditflow/internal/http/middleware"
	appotel "auditflow/internal/otel"
	"auditflow/internal/repository"
	"auditflow/internal/repository/postgres"
	"auditflow/internal/scheduler"
	"auditflow/internal/service"
	"auditflow/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := appotel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Live-update broadcasting is optional; without Redis the dispatcher
	// only feeds the notifier.
	var broadcaster event.Broadcaster
	if cfg.Redis.Addr != "" {
		rb, err := event.NewRedisBroadcaster(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rb.Close()
		broadcaster = rb
	}
	dispatcher := event.NewDispatcher(event.NewLogNotifier(logger), broadcaster, logger)
	defer dispatcher.Flush()

	registry := prometheus.NewRegistry()
	domainMetrics, err := service.NewMetrics(registry)
	if err != nil {
		log.Fatalf("failed to register domain metrics: %v", err)
	}

	// Repositories and services
	auditRepo := postgres.NewAuditPostgres(db)
	docRepo := postgres.NewDocumentPostgres(db)
	sectionRepo := postgres.NewSectionPostgres(db)
	trailRepo := postgres.NewTrailPostgres(db)

	auditSvc := service.NewAuditService(
		auditRepo, docRepo, sectionRepo, trailRepo,
		dispatcher, logger, domainMetrics,
		service.SweepEmptyPolicy(cfg.Audit.SweepEmptyPolicy),
	)
	docSvc := service.NewDocumentService(
		objStore, docRepo, auditRepo, sectionRepo, trailRepo,
		service.AllowAll{}, auditSvc, logger, domainMetrics,
		service.DocumentConfig{
			MaxUploadSize: cfg.Audit.MaxUploadBytes,
			DedupScope:    repository.ParseDedupScope(cfg.Audit.DedupScope),
			BackupPrefix:  cfg.Audit.BackupPrefix,
		},
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Audit.MaxUploadBytes) + 1<<20, // form overhead headroom
		// Large uploads must not be buffered whole; with streaming on,
		// multipart parsing spills big parts to temp files instead.
		StreamRequestBody: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	promMW, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, auditSvc, docSvc)

	// Periodic deadline sweep, independent of request traffic
	sweeper := scheduler.New(auditSvc.RunScheduledChecks,
		time.Duration(cfg.Audit.SweepIntervalSec)*time.Second, logger)
	go sweeper.Start(ctx)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
