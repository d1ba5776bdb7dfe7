package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	_ "aria/docs"
	"aria/internal/confidence"
	"aria/internal/config"
	"aria/internal/extraction"
	"aria/internal/handler"
	"aria/internal/logger"
	"aria/internal/metrics"
	"aria/internal/notify/noop"
	"aria/internal/notify/ses"
	"aria/internal/port"
	"aria/internal/repository/postgres"
	"aria/internal/router"
	"aria/internal/schema"
	"aria/internal/service"
	s3storage "aria/internal/storage/s3"
	"aria/internal/understanding"
	"aria/internal/understanding/providers"
)

// @title Aria Extraction API
// @version 1.0
// @description Transaction extraction and validation for booking and payment conversations.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Service token: Bearer <jwt>
func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	runRepo := postgres.NewExtractionRunRepo(db)

	// Initialize archive storage
	var archive port.ObjectStorage
	if cfg.S3.Bucket != "" {
		archive, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	// Initialize handoff notifier
	notifier, err := newNotifier(ctx, &cfg.Notify, log)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	// Initialize the extraction pipeline
	registry := schema.Default()
	calibrator, err := confidence.NewCalibrator(confidence.BandsFromConfig(cfg.Confidence))
	if err != nil {
		return fmt.Errorf("invalid confidence configuration: %w", err)
	}
	providers.RegisterAll()
	understander, err := understanding.Build(&cfg.Understanding, registry, log)
	if err != nil {
		return fmt.Errorf("failed to initialize understanding providers: %w", err)
	}
	coordinator := extraction.NewCoordinator(registry, understander,
		extraction.WithCalibrator(calibrator),
		extraction.WithTimeout(cfg.Understanding.Timeout()),
		extraction.WithLogger(log),
	)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize services
	extractionSvc := service.NewExtractionService(coordinator, runRepo, archive, notifier, m, service.ExtractionConfig{
		Concurrency:   cfg.Batch.Concurrency,
		MaxBatch:      cfg.Batch.MaxConversations,
		ArchiveBucket: cfg.S3.Bucket,
		ArchivePrefix: cfg.S3.Prefix,
	}, log)
	var tokenSvc service.TokenService
	if cfg.Auth.Secret != "" {
		tokenSvc = service.NewTokenService(cfg.Auth)
	} else {
		log.Warn().Msg("ARIA_AUTH_SECRET not set; API is unauthenticated")
	}

	// Initialize handlers
	extractionH := handler.NewExtractionHandler(extractionSvc)
	schemaH := handler.NewSchemaHandler(registry)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(log, cfg.CORS.AllowedOrigins, tokenSvc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		extractionH, schemaH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", cfg.Understanding.Mode).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newNotifier(ctx context.Context, cfg *config.NotifyConfig, log zerolog.Logger) (port.HandoffNotifier, error) {
	switch cfg.Provider {
	case "ses":
		return ses.NewSESNotifier(ctx, cfg)
	case "", "noop":
		return noop.NewNoopNotifier(log), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}
