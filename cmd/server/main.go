package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nestquest/server/config"
	"nestquest/server/internal/api"
	"nestquest/server/internal/database"
	"nestquest/server/internal/geocoding"
	"nestquest/server/internal/processor"
	"nestquest/server/internal/queue"
	"nestquest/server/internal/search"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	provider := geocoding.NewNominatimClient(
		logger,
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.CountryCodes,
		time.Duration(cfg.Geocoding.RequestTimeout)*time.Second,
		time.Duration(cfg.Geocoding.RequestDelay)*time.Millisecond,
	)
	cacheDir := filepath.Join(os.TempDir(), "nestquest", "geocode_cache")
	resolver := geocoding.NewResolver(provider, logger, cacheDir)

	pipeline := search.NewPipeline(resolver, db, logger, cfg.Search.MaxDistanceMeters, cfg.Search.ResultLimit,
		time.Duration(cfg.Search.QueryTimeout)*time.Second)

	importQueue := queue.NewListingQueue(cfg.BatchImport.QueueSize, logger)
	importer := processor.NewBatchImporter(db.DB(), importQueue, cfg, logger)
	importer.Start()
	defer importQueue.Close()

	handler := api.NewHandler(db, resolver, pipeline, importQueue, logger)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
