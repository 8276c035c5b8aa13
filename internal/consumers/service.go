package consumers

import (
	"context"
	"log/slog"

	"kidbook/internal/config"
	"kidbook/internal/database"
	"kidbook/internal/external"
	"kidbook/internal/messaging"
	"kidbook/internal/repository"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	// Create repositories
	repos := repository.NewRepositories(db)

	// Create notification gateway client
	notifyClient := external.NewNotifyClient(cfg.Notify)

	// Create handlers
	handlers := NewHandlers(repos, notifyClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	// Subscribe to booking events
	_, err := cs.nats.SubscribeQueue("booking.confirmed", "consumers", cs.handlers.HandleBookingConfirmed)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue("booking.cancelled", "consumers", cs.handlers.HandleBookingCancelled)
	if err != nil {
		return err
	}

	// Subscribe to waitlist events
	_, err = cs.nats.SubscribeQueue("waitlist.notified", "consumers", cs.handlers.HandleWaitlistNotified)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue("waitlist.expired", "consumers", cs.handlers.HandleWaitlistExpired)
	if err != nil {
		return err
	}

	// Subscribe to credit events
	_, err = cs.nats.SubscribeQueue("credit.expired", "consumers", cs.handlers.HandleCreditExpired)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
