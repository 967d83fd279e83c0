package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/stan.go"

	"eventplatform/internal/config"
	"eventplatform/internal/database"
	"eventplatform/internal/logger"
	"eventplatform/internal/messaging"
	"eventplatform/internal/models"
	"eventplatform/internal/repository"
	"eventplatform/internal/search"
)

const queueGroup = "eventos-consumers"

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	if !cfg.NATS.Enabled {
		return nil, errors.New("consumers require NATS_ENABLED=true")
	}
	if !cfg.Elasticsearch.Enabled {
		return nil, errors.New("consumers require ELASTICSEARCH_ENABLED=true")
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	repos := repository.NewRepositories(db)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		handlers: NewHandlers(repos.Events, es, logger.WithFields("component", "consumers")),
	}, nil
}

// Start subscribes the handlers as durable queue subscribers
func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	routes := []struct {
		subject string
		handle  func(context.Context, []byte) error
	}{
		{models.EventEventCreated, cs.handlers.ProjectEvent},
		{models.EventEventUpdated, cs.handlers.ProjectEvent},
		{models.EventEventDeleted, cs.handlers.ProjectEvent},
		{models.EventRegistrationConfirmed, cs.handlers.AuditRegistration},
		{models.EventRegistrationReactivate, cs.handlers.AuditRegistration},
		{models.EventRegistrationCancelled, cs.handlers.AuditRegistration},
		{models.EventUserRegistered, cs.handlers.AuditSignup},
	}

	for _, r := range routes {
		sub, err := cs.nats.SubscribeQueue(r.subject, queueGroup, cs.handlers.ack(r.handle))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", r.subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close keeps the durable subscriptions, Unsubscribe would drop them
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Warn("Failed to close subscription", "error", err)
		}
	}

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

	return ctx.Err()
}
