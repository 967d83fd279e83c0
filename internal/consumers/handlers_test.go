package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

type stubEvents struct {
	events map[int64]*models.Event
	err    error
}

func (s stubEvents) GetByID(_ context.Context, id int64) (*models.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.events[id]; ok {
		return e, nil
	}
	return nil, apperrors.ErrNotFound
}

type recordingIndexer struct {
	indexed []int64
	deleted []int64
	err     error
}

func (r *recordingIndexer) IndexEvent(_ context.Context, e *models.Event) error {
	if r.err != nil {
		return r.err
	}
	r.indexed = append(r.indexed, e.ID)
	return nil
}

func (r *recordingIndexer) DeleteEvent(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestProjectEvent_IndexesExistingEvent(t *testing.T) {
	idx := &recordingIndexer{}
	h := NewHandlers(stubEvents{events: map[int64]*models.Event{7: {ID: 7, Title: "Feria"}}}, idx, quietLogger())

	err := h.ProjectEvent(context.Background(), message(t, models.EventChangedEvent{EventID: 7, Action: "updated"}))

	require.NoError(t, err)
	assert.Equal(t, []int64{7}, idx.indexed)
	assert.Empty(t, idx.deleted)
}

func TestProjectEvent_DeletesMissingEvent(t *testing.T) {
	idx := &recordingIndexer{}
	h := NewHandlers(stubEvents{}, idx, quietLogger())

	err := h.ProjectEvent(context.Background(), message(t, models.EventChangedEvent{EventID: 9, Action: "deleted"}))

	require.NoError(t, err)
	assert.Equal(t, []int64{9}, idx.deleted)
}

func TestProjectEvent_ErrorsAreRetried(t *testing.T) {
	h := NewHandlers(stubEvents{err: errors.New("connection refused")}, &recordingIndexer{}, quietLogger())
	assert.Error(t, h.ProjectEvent(context.Background(), message(t, models.EventChangedEvent{EventID: 1})))

	idx := &recordingIndexer{err: errors.New("es down")}
	h = NewHandlers(stubEvents{events: map[int64]*models.Event{1: {ID: 1}}}, idx, quietLogger())
	assert.Error(t, h.ProjectEvent(context.Background(), message(t, models.EventChangedEvent{EventID: 1})))
}

func TestHandlers_MalformedMessagesAreDropped(t *testing.T) {
	h := NewHandlers(stubEvents{}, &recordingIndexer{}, quietLogger())
	ctx := context.Background()

	assert.NoError(t, h.ProjectEvent(ctx, []byte("{")))
	assert.NoError(t, h.AuditRegistration(ctx, []byte("nope")))
	assert.NoError(t, h.AuditSignup(ctx, []byte("[")))
}

func TestAudit_AcceptsWellFormedMessages(t *testing.T) {
	h := NewHandlers(stubEvents{}, &recordingIndexer{}, quietLogger())
	ctx := context.Background()

	assert.NoError(t, h.AuditRegistration(ctx, message(t, models.RegistrationChangedEvent{
		RegistrationID: 1, EventID: 2, UserID: 3, State: models.RegistrationConfirmed, AvailableSeats: -1,
	})))
	assert.NoError(t, h.AuditSignup(ctx, message(t, models.UserRegisteredEvent{UserID: 3, Username: "ana", Group: models.GroupAttendees})))
}
