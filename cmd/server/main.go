package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/learnhub/community/internal/api"
	"github.com/learnhub/community/internal/cache"
	"github.com/learnhub/community/internal/content"
	"github.com/learnhub/community/internal/db"
	"github.com/learnhub/community/internal/engagement"
	"github.com/learnhub/community/internal/ranking"
	"github.com/learnhub/community/internal/store"
	"github.com/learnhub/community/internal/thread"
	"github.com/learnhub/community/pkg/config"
	"github.com/learnhub/community/pkg/logging"
	"github.com/learnhub/community/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting community API server", zap.String("storage_backend", cfg.Storage.Backend))

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	checks := map[string]api.HealthChecker{}

	// Post storage
	var backend store.Store
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		database, err := db.New(&cfg.Database, cfg.Logging.Level)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close()
		if err := database.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		backend = db.NewPostStore(database)
		checks["database"] = database
	default:
		backend = store.NewMemory()
	}

	// Listing cache: Redis when configured, otherwise in-process
	var opts []ranking.Option
	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	switch {
	case redisCache != nil:
		defer redisCache.Close()
		opts = append(opts, ranking.WithCache(redisCache))
		checks["redis"] = redisCache
	case cfg.Cache.Enabled:
		lru, err := cache.NewMemory(cfg.Cache.Size)
		if err != nil {
			logger.Fatal("Failed to create listing cache", zap.Error(err))
		}
		opts = append(opts, ranking.WithCache(lru))
	}
	opts = append(opts,
		ranking.WithTrendingLimit(cfg.Engagement.TrendingLimit),
		ranking.WithDefaultPageSize(cfg.Engagement.DefaultPageSize),
	)

	rankingSvc := ranking.NewService(backend, opts...)
	posts := store.NewNotifying(
		store.NewRetrying(backend, cfg.Engagement.MaxConflictRetries),
		rankingSvc.Invalidate,
	)

	contentSvc := content.NewService(posts, time.Now)
	engine := engagement.NewEngine(posts, time.Now)
	threads := thread.NewService(posts, time.Now)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	apiRouter := api.NewRouter(contentSvc, engine, threads, rankingSvc)
	for name, hc := range checks {
		apiRouter.AddHealthCheck(name, hc)
	}
	apiRouter.SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
