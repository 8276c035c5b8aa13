package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"kidbook/internal/config"
	"kidbook/internal/database"
	"kidbook/internal/logger"
	"kidbook/internal/repository"
	"kidbook/internal/search"
	"kidbook/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting catalog reindex")

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Elasticsearch
	esClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		log.Fatalf("Failed to connect to Elasticsearch: %v", err)
	}

	activityRepo := repository.NewActivityRepository(db)
	activities := service.NewActivityService(activityRepo, esClient)

	start := time.Now()
	indexed, err := activities.Reindex(context.Background())
	if err != nil {
		log.Fatalf("Reindex failed: %v", err)
	}

	slog.Info("Catalog reindex completed",
		"indexed", indexed,
		"duration", time.Since(start).String())
}
