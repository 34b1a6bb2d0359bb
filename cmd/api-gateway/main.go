package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roadworks-api/api/swagger"
	"github.com/noah-isme/roadworks-api/internal/client"
	"github.com/noah-isme/roadworks-api/internal/handler"
	"github.com/noah-isme/roadworks-api/internal/middleware"
	"github.com/noah-isme/roadworks-api/internal/repository"
	"github.com/noah-isme/roadworks-api/internal/service"
	"github.com/noah-isme/roadworks-api/pkg/cache"
	"github.com/noah-isme/roadworks-api/pkg/config"
	"github.com/noah-isme/roadworks-api/pkg/database"
	"github.com/noah-isme/roadworks-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/roadworks-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roadworks-api/pkg/middleware/requestid"
)

// @title Roadworks API
// @version 0.1.0
// @description Road-level aggregation and SLA deadline engine for the repairs dashboard
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, snapshots, err := buildStores(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("store init failed", "driver", cfg.Store.Driver, "error", err)
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(snapshots, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	reporting := client.NewReportingClient(cfg.Reporting, logr)
	geocoder := client.NewGeocodeClient(cfg.Geocode, logr)

	enrichment := service.NewEnrichmentService(geocoder,
		repository.NewEnrichmentRepository(store, logr), logr)
	deadlines := service.NewDeadlineService(
		repository.NewDeadlineRepository(store, logr), cfg.SLA, logr)

	aggregation := service.NewAggregationService(service.AggregationServiceParams{
		Reporting:    reporting,
		Enrichment:   enrichment,
		Deadlines:    deadlines,
		Cache:        cacheSvc,
		Metrics:      metrics,
		Logger:       logr,
		GeocodeDelay: cfg.Geocode.Delay,
	})
	aggregation.Start(ctx)
	defer aggregation.Stop()

	if err := aggregation.Refresh(ctx); err != nil {
		logr.Sugar().Warnw("initial refresh failed", "error", err)
	}

	exports := service.NewExportService(aggregation, logr)

	roadHandler := handler.NewRoadHandler(aggregation, exports)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	{
		api.GET("/roads", roadHandler.List)
		api.GET("/roads/export", roadHandler.ExportRoads)
		api.POST("/roads/assign", roadHandler.Assign)
		api.POST("/roads/verify", roadHandler.Verify)
		api.GET("/summary", roadHandler.Summary)
		api.GET("/history", roadHandler.History)
		api.GET("/history/export", roadHandler.ExportHistory)
		api.POST("/reports/:id/reject", roadHandler.Reject)
		api.POST("/refresh", roadHandler.Refresh)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// buildStores selects the durable key-value substrate for the
// enrichment and deadline caches, plus the optional redis-backed
// snapshot repository.
func buildStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.KVStore, service.SnapshotRepository, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StoreDriverMemory:
		return repository.NewMemoryStore(), nil, nil
	default:
		rdb, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisStore(rdb, "roadworks"),
			repository.NewCacheRepository(rdb, logr), nil
	}
}
