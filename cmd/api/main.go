package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/cache"
	"github.com/mfurukawa/dellwatch/internal/config"
	"github.com/mfurukawa/dellwatch/internal/database"
	"github.com/mfurukawa/dellwatch/internal/handler"
	"github.com/mfurukawa/dellwatch/internal/middleware"
	"github.com/mfurukawa/dellwatch/internal/orchestrator"
	"github.com/mfurukawa/dellwatch/internal/repository"
	"github.com/mfurukawa/dellwatch/internal/worker"
)

// main is the entrypoint for the browsing/orchestration API. The crawl
// itself runs in the separate crawler binary, launched remotely on demand.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting price tracker api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	runLock := cache.NewRunLock(redisClient)

	// 4. Initialize repositories
	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewPriceHistoryRepository(db)

	// 5. Initialize the crawl run launcher (optional: only when configured)
	var launcher *orchestrator.ECSLauncher
	if cfg.ECS.Cluster != "" && cfg.ECS.TaskFamily != "" {
		launcher, err = orchestrator.NewECSLauncher(context.Background(), cfg.ECS)
		if err != nil {
			log.Warn().Err(err).Msg("ECS launcher initialization failed - crawl endpoints will be disabled")
		}
	} else {
		log.Warn().Msg("ECS_CLUSTER/ECS_TASK_FAMILY not set - crawl endpoints will be disabled")
	}

	// 6. Initialize handlers
	healthHandler := handler.NewHealthHandler(db, redisClient)
	productHandler := handler.NewProductHandler(productRepo, historyRepo)
	notificationHandler := handler.NewNotificationHandler(productRepo)
	crawlHandler := handler.NewCrawlHandler(launcher, runLock)

	// 7. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.GetHealth)
		api.GET("/products", productHandler.GetProducts)
		api.GET("/models/:name", productHandler.GetModels)
		api.GET("/price-trend/:name/:model", productHandler.GetPriceTrend)
		api.GET("/notification-settings", notificationHandler.GetSettings)
		api.POST("/notification-settings", notificationHandler.UpdateSetting)
		api.POST("/crawl", crawlHandler.StartCrawl)
		// Task ARNs contain slashes, hence the wildcard parameter.
		api.GET("/crawl/status/*arn", crawlHandler.GetStatus)
	}

	// 8. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. Start the scheduled crawl worker when an interval is configured
	if cfg.Worker.CrawlInterval > 0 && launcher != nil {
		go worker.NewCrawlWorker(launcher, runLock, cfg.Worker.CrawlInterval).Start(ctx)
	}

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Cancel context to stop workers
	cancel()

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
