package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
	"eventplatform/internal/workflow"
)

func seed(t *testing.T, capacity int) (*Store, *models.Event, []int64) {
	t.Helper()
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Users().EnsureGroup(ctx, models.GroupOrganizers))
	require.NoError(t, s.Users().EnsureGroup(ctx, models.GroupAttendees))

	organizer := &models.User{Username: "org", IsActive: true}
	require.NoError(t, s.Users().CreateWithGroup(ctx, organizer, models.GroupOrganizers))

	et := &models.EventType{Name: "Taller"}
	_, err := s.EventTypes().Ensure(ctx, et)
	require.NoError(t, err)

	event := &models.Event{
		Title:       "Taller de Go",
		EventTypeID: et.ID,
		OrganizerID: organizer.UserID,
		MaxCapacity: capacity,
		StartTime:   time.Now().Add(time.Hour),
		EndTime:     time.Now().Add(2 * time.Hour),
		State:       models.EventStatePublished,
		Visibility:  models.VisibilityPublic,
		Price:       "0.00",
	}
	require.NoError(t, s.Events().Create(ctx, event))

	var attendees []int64
	for _, name := range []string{"ana", "luis", "marta", "pablo", "sofia"} {
		u := &models.User{Username: name, IsActive: true}
		require.NoError(t, s.Users().CreateWithGroup(ctx, u, models.GroupAttendees))
		attendees = append(attendees, u.UserID)
	}
	return s, event, attendees
}

func TestTransition_ConcurrentRegistrationsRespectCapacity(t *testing.T) {
	s, event, attendees := seed(t, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, rejected := 0, 0

	for _, uid := range attendees {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, out, err := s.Registrations().Transition(ctx, event.ID, uid, workflow.Register)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
				rejected++
				return
			}
			assert.Equal(t, workflow.OutcomeCreated, out)
			created++
		}(uid)
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	assert.Equal(t, 3, rejected)

	stored, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableSeats())
}

func TestTransition_ReusesRow(t *testing.T) {
	s, event, attendees := seed(t, 5)
	ctx := context.Background()
	uid := attendees[0]

	first, _, err := s.Registrations().Transition(ctx, event.ID, uid, workflow.Register)
	require.NoError(t, err)

	cancelled, out, err := s.Registrations().Transition(ctx, event.ID, uid, workflow.Cancel)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeCancelled, out)
	assert.Equal(t, first.ID, cancelled.ID)

	again, out, err := s.Registrations().Transition(ctx, event.ID, uid, workflow.Register)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeReactivated, out)
	assert.Equal(t, first.ID, again.ID)

	count, err := s.Registrations().CountForUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteEventCascadesRegistrations(t *testing.T) {
	s, event, attendees := seed(t, 5)
	ctx := context.Background()

	_, _, err := s.Registrations().Transition(ctx, event.ID, attendees[0], workflow.Register)
	require.NoError(t, err)

	require.NoError(t, s.Events().Delete(ctx, event.ID))

	_, err = s.Registrations().Get(ctx, event.ID, attendees[0])
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	s, event, attendees := seed(t, 5)
	ctx := context.Background()

	_, _, err := s.Registrations().Transition(ctx, event.ID, attendees[1], workflow.Register)
	require.NoError(t, err)

	require.NoError(t, s.Users().DeleteUser(ctx, event.OrganizerID))

	_, err = s.Events().GetByID(ctx, event.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	states, err := s.Registrations().StatesForUser(ctx, attendees[1])
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestCreateWithGroup(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Users().CreateWithGroup(ctx, &models.User{Username: "x"}, models.GroupOrganizers)
	assert.ErrorIs(t, err, apperrors.ErrGroupNotFound)

	require.NoError(t, s.Users().EnsureGroup(ctx, models.GroupOrganizers))
	require.NoError(t, s.Users().CreateWithGroup(ctx, &models.User{Username: "x"}, models.GroupOrganizers))

	err = s.Users().CreateWithGroup(ctx, &models.User{Username: "x"}, models.GroupOrganizers)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestSessionsExpire(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Sessions().SaveSession(ctx, &models.Session{Token: "t", UserID: 1, ExpiresAt: now.Add(time.Minute)}))

	got, err := s.Sessions().GetSession(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)

	now = now.Add(2 * time.Minute)
	_, err = s.Sessions().GetSession(ctx, "t")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
