package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"eventplatform/internal/config"
	"eventplatform/internal/database"
	"eventplatform/internal/logger"
	"eventplatform/internal/models"
	"eventplatform/internal/repository"
	"eventplatform/internal/search"
)

// reindex переносит события из PostgreSQL в индекс Elasticsearch
func main() {
	var eventID int64
	flag.Int64Var(&eventID, "event-id", 0, "Reindex a single event (0 = all events)")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting search reindex", "event_id", eventID)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to connect to elasticsearch", "error", err)
	}

	repos := repository.NewRepositories(db)

	if err := reindex(context.Background(), repos.Events, es, eventID); err != nil {
		logger.Fatal("Reindex failed", "error", err)
	}

	slog.Info("Reindex completed successfully")
}

type eventSource interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

type eventIndexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
}

func reindex(ctx context.Context, source eventSource, indexer eventIndexer, eventID int64) error {
	start := time.Now()

	var events []models.Event
	if eventID > 0 {
		event, err := source.GetByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to load event %d: %w", eventID, err)
		}
		events = []models.Event{*event}
	} else {
		var err error
		events, err = source.List(ctx, models.EventFilter{})
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
	}
	slog.Info("Loaded events from database", "count", len(events))

	failed := 0
	for i := range events {
		if err := indexer.IndexEvent(ctx, &events[i]); err != nil {
			failed++
			slog.Error("Failed to index event", "event_id", events[i].ID, "error", err)
		}
	}

	elapsed := time.Since(start)
	slog.Info("Reindex finished",
		"indexed", len(events)-failed,
		"failed", failed,
		"duration", elapsed.String())

	if failed > 0 {
		return fmt.Errorf("%d of %d events were not indexed", failed, len(events))
	}
	return nil
}
