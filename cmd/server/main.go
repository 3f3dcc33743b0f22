package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appconfig "comparables/server/config"
	"comparables/server/internal/api"
	"comparables/server/internal/comparables"
	"comparables/server/internal/database"
	"comparables/server/internal/processor"
	"comparables/server/internal/queue"
	"comparables/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}

	cfg, err := appconfig.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbPath := cfg.DatabasePath
	if !filepath.IsAbs(dbPath) {
		currentDir, err := os.Getwd()
		if err != nil {
			logger.WithError(err).Fatal("Failed to get current directory")
		}
		dbPath = filepath.Join(currentDir, dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", dbPath)

	// Initialize database
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// gorm handle for the batch ingestion path, sharing the same file
	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize gorm")
	}

	// Ingestion pipeline: queue feeding the batch processor
	txQueue := queue.NewTransactionQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(gormDB, txQueue, cfg, logger)
	batchProcessor.Start()
	defer batchProcessor.Stop()

	// Engine contexts and the dirty-save retry loop
	manager := comparables.NewManager(db, logger, time.Duration(cfg.Sync.DebounceMillis)*time.Millisecond)
	flusher := scheduler.NewFlusher(manager, logger, time.Duration(cfg.Sync.RetryIntervalSeconds)*time.Second)
	flusher.Start()
	defer flusher.Stop()

	// Initialize router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "X-User-ID", "X-Request-ID"},
	}))

	handler := api.NewHandler(db, manager, txQueue, logger)
	api.SetupRoutes(router, handler)

	// Flush open contexts before exiting
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("Shutting down, flushing open comparables contexts")
		manager.CloseAll(context.Background())
		txQueue.Close()
		os.Exit(0)
	}()

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
