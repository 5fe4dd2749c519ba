package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"parcelscope/server/config"
	"parcelscope/server/internal/analytics"
	"parcelscope/server/internal/api"
	"parcelscope/server/internal/cache"
	"parcelscope/server/internal/database"
	"parcelscope/server/internal/models"
	"parcelscope/server/internal/processor"
	"parcelscope/server/internal/queue"
	"parcelscope/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.Server.DBPath)

	// Initialize database
	db, err := database.NewDatabase(cfg.Server.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	engine := analytics.NewEngine(cfg.Analytics, logger)
	analyses, err := cache.NewAnalysisCache(engine, cfg.Cache.Capacity, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create analysis cache")
	}
	defer analyses.Close()

	// Ingest pipeline
	ingest := queue.NewParcelQueue(cfg.BatchProcessing.MaxBatchSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetDB(), ingest, cfg, logger)
	batchProcessor.OnStored(func([]*models.Parcel) {
		// analyses of the previous comparison sets are not requested again
		analyses.Purge()
	})
	batchProcessor.Start()
	ingest.Start()

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	jobs := scheduler.NewScheduler(db, engine, analyses, logger, config.MajorCities)
	jobs.Start()

	handler := api.NewHandler(db, engine, analyses, ingest, logger)
	handler.UseSnapshots(jobs)
	cities := api.NewCityHandler(db, engine.Config(), logger)
	api.SetupRoutes(router, handler, cities, rate.NewLimiter(rate.Limit(5), 10))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	jobs.Stop()
	batchProcessor.Stop()
	ingest.Close()
}
