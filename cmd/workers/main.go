package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kidbook/cmd/workers/jobs"
	"kidbook/internal/config"
	"kidbook/internal/database"
	"kidbook/internal/logger"
	"kidbook/internal/messaging"
	"kidbook/internal/repository"
	"kidbook/internal/service"
)

func main() {
	log.Println("Starting workers service...")

	// Load configuration
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Override NATS client ID for workers
	cfg.NATS.ClientID = "kidbook-workers"

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsClient.Close()

	// Build the domain services the jobs drive. Workers publish the same
	// events as the API, so they share the service layer.
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, natsClient, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	waitlistJob := jobs.NewWaitlistExpiryJob(services.Waitlist)
	waitlistJob.Start(ctx)

	creditJob := jobs.NewCreditExpiryJob(services.Credits)
	creditJob.Start(ctx)

	log.Println("Workers service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down workers service...")

	waitlistJob.Stop()
	creditJob.Stop()

	log.Println("Workers service stopped")
}
