package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/marks-api/api/swagger"
	"github.com/noah-isme/marks-api/internal/handler"
	internalmiddleware "github.com/noah-isme/marks-api/internal/middleware"
	"github.com/noah-isme/marks-api/internal/repository"
	"github.com/noah-isme/marks-api/internal/service"
	"github.com/noah-isme/marks-api/pkg/cache"
	"github.com/noah-isme/marks-api/pkg/config"
	"github.com/noah-isme/marks-api/pkg/database"
	"github.com/noah-isme/marks-api/pkg/events"
	"github.com/noah-isme/marks-api/pkg/grading"
	"github.com/noah-isme/marks-api/pkg/jobs"
	"github.com/noah-isme/marks-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/marks-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/marks-api/pkg/middleware/requestid"
	"github.com/noah-isme/marks-api/pkg/storage"
)

// @title Marks API
// @version 1.0.0
// @description Question formats, student marks, guided entry sessions and weighted grade summaries
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheme, err := grading.FromConfig(cfg.Grading)
	if err != nil {
		return fmt.Errorf("grading scheme: %w", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	defer cancelConnect()
	db, err := database.NewPostgres(connectCtx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck
	if err := database.EnsureSchema(connectCtx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	var redisClient redis.UniversalClient
	if cfg.Summary.CacheEnabled {
		client, err := cache.NewRedis(connectCtx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close() //nolint:errcheck
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, "marks")
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Summary.CacheTTL, logr, redisClient != nil)

	markRepo := repository.NewMarkRepository(db)
	formatRepo := repository.NewFormatRepository(db)

	summarySvc := service.NewSummaryService(markRepo, cacheSvc, scheme, cfg.Summary.CacheTTL, logr)

	publisher, subscriber, err := buildEvents(cfg.Events, logr)
	if err != nil {
		return err
	}
	defer publisher.Close() //nolint:errcheck
	if subscriber != nil {
		if err := events.Consume(ctx, subscriber, cfg.Events.Topic, summarySvc.HandleMarkEvent, logr); err != nil {
			return err
		}
	}

	formatSvc := service.NewFormatService(formatRepo, validate, logr)
	markSvc := service.NewMarkService(markRepo, formatRepo, scheme, summarySvc, publisher, metrics, validate, logr)
	entrySvc := service.NewEntryService(markSvc, formatSvc, scheme, metrics, service.EntryServiceConfig{
		SessionTTL:    cfg.Entry.SessionTTL,
		AutoReconcile: cfg.Entry.AutoReconcile,
	}, validate, logr)

	reconcileQueue := jobs.NewQueue("entry-reconcile", entrySvc.HandleReconcileJob, jobs.QueueConfig{
		Workers:    cfg.Entry.ReconcileWorkers,
		MaxRetries: cfg.Entry.ReconcileRetries,
		RetryDelay: cfg.Entry.ReconcileRetryWait,
		Logger:     logr,
	})
	reconcileQueue.Start(ctx)
	defer reconcileQueue.Stop()
	entrySvc.SetQueue(reconcileQueue)
	go entrySvc.RunSweeper(ctx, cfg.Entry.SessionTTL/4)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(markRepo, formatSvc, summarySvc, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, validate, logr)
	go exportSvc.RunCleanup(ctx, cfg.Exports.CleanupInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Formats: handler.NewFormatHandler(formatSvc),
		Marks:   handler.NewMarkHandler(markSvc),
		Summary: handler.NewSummaryHandler(summarySvc, exportSvc),
		Entry:   handler.NewEntryHandler(entrySvc),
		Exports: handler.NewExportHandler(exportSvc),
		Metrics: handler.NewMetricsHandler(metrics, checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildEvents returns the mark event publisher and, for the in-process bus, the subscriber feeding
// summary invalidation. Kafka consumers live outside this service.
func buildEvents(cfg config.EventsConfig, logr *zap.Logger) (events.Publisher, message.Subscriber, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, nil, nil
	}
	switch cfg.Publisher {
	case "kafka":
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic, logr)
		if err != nil {
			return nil, nil, err
		}
		return pub, nil, nil
	case "", "memory":
		bus := events.NewInMemoryBus(logr)
		return events.NewWatermillPublisher(bus, cfg.Topic, logr), bus, nil
	default:
		return nil, nil, fmt.Errorf("unknown events publisher %q", cfg.Publisher)
	}
}
