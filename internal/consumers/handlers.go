package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

const handleTimeout = 10 * time.Second

// EventLoader reads the current state of an event
type EventLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

// Indexer keeps the search projection in sync
type Indexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

type Handlers struct {
	events  EventLoader
	indexer Indexer
	log     *slog.Logger
}

func NewHandlers(events EventLoader, indexer Indexer, log *slog.Logger) *Handlers {
	return &Handlers{
		events:  events,
		indexer: indexer,
		log:     log,
	}
}

// ProjectEvent reindexes the event named in an event.* message.
// The database is the source of truth; a missing event is removed from the index.
func (h *Handlers) ProjectEvent(ctx context.Context, data []byte) error {
	var msg models.EventChangedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		// битое сообщение не переотправляем
		h.log.Error("Failed to unmarshal event message", "error", err)
		return nil
	}

	event, err := h.events.GetByID(ctx, msg.EventID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		if err := h.indexer.DeleteEvent(ctx, msg.EventID); err != nil {
			return fmt.Errorf("failed to delete event %d from index: %w", msg.EventID, err)
		}
		h.log.Info("Event removed from index", "event_id", msg.EventID, "action", msg.Action)
		return nil
	case err != nil:
		return fmt.Errorf("failed to load event %d: %w", msg.EventID, err)
	}

	if err := h.indexer.IndexEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to index event %d: %w", msg.EventID, err)
	}
	h.log.Info("Event indexed", "event_id", event.ID, "action", msg.Action)
	return nil
}

// AuditRegistration records registration state changes
func (h *Handlers) AuditRegistration(_ context.Context, data []byte) error {
	var msg models.RegistrationChangedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Error("Failed to unmarshal registration message", "error", err)
		return nil
	}

	h.log.Info("Registration changed",
		"registration_id", msg.RegistrationID,
		"event_id", msg.EventID,
		"user_id", msg.UserID,
		"state", msg.State,
		"available_seats", msg.AvailableSeats,
		"at", msg.Timestamp)
	if msg.AvailableSeats < 0 {
		h.log.Warn("Event is over capacity", "event_id", msg.EventID, "available_seats", msg.AvailableSeats)
	}
	return nil
}

// AuditSignup records new accounts
func (h *Handlers) AuditSignup(_ context.Context, data []byte) error {
	var msg models.UserRegisteredEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Error("Failed to unmarshal user message", "error", err)
		return nil
	}

	h.log.Info("User signed up", "user_id", msg.UserID, "username", msg.Username, "group", msg.Group, "at", msg.Timestamp)
	return nil
}

// ack adapts fn to a manual-ack stan handler: the message is acked only when fn
// succeeds, otherwise NATS Streaming redelivers it after AckWait.
func (h *Handlers) ack(fn func(context.Context, []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()

		if err := fn(ctx, m.Data); err != nil {
			h.log.Error("Message handling failed, waiting for redelivery",
				"subject", m.Subject, "sequence", m.Sequence, "redelivered", m.Redelivered, "error", err)
			return
		}

		if err := m.Ack(); err != nil {
			h.log.Error("Failed to ack message", "subject", m.Subject, "sequence", m.Sequence, "error", err)
		}
	}
}
