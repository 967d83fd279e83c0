package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventplatform/internal/models"
)

func privateEvent(organizerID int64) *models.Event {
	return &models.Event{ID: 1, OrganizerID: organizerID, Visibility: models.VisibilityPrivate, State: models.EventStatePublished}
}

func publicEvent(organizerID int64, state string) *models.Event {
	return &models.Event{ID: 2, OrganizerID: organizerID, Visibility: models.VisibilityPublic, State: state}
}

func TestCanView_PublicIsAlwaysVisible(t *testing.T) {
	principals := []Principal{
		Anonymous(),
		NewPrincipal(5, "ana", []string{models.GroupAttendees}),
		NewPrincipal(6, "sin-grupo", nil),
	}
	for _, state := range []string{models.EventStateDraft, models.EventStatePublished, models.EventStateCancelled, models.EventStateFinished} {
		for _, p := range principals {
			assert.True(t, CanView(p, publicEvent(99, state), false), "state=%s user=%d", state, p.UserID)
		}
	}
}

func TestCanView_Private(t *testing.T) {
	e := privateEvent(10)

	assert.False(t, CanView(Anonymous(), e, false))
	assert.False(t, CanView(Anonymous(), e, true), "anonymous never sees private events")

	organizer := NewPrincipal(10, "org", []string{models.GroupAttendees})
	assert.True(t, CanView(organizer, e, false))

	attendee := NewPrincipal(11, "att", []string{models.GroupAttendees})
	assert.False(t, CanView(attendee, e, false))
	assert.True(t, CanView(attendee, e, true), "any registration grants visibility")

	otherOrganizer := NewPrincipal(12, "org2", []string{models.GroupOrganizers})
	assert.True(t, CanView(otherOrganizer, e, false), "view_private_events")

	admin := NewPrincipal(13, "admin", []string{models.GroupAdministrators})
	assert.True(t, CanView(admin, e, false))
}

func TestCanEdit(t *testing.T) {
	e := privateEvent(10)

	assert.True(t, CanEdit(NewPrincipal(10, "org", []string{models.GroupOrganizers}), e))
	assert.False(t, CanEdit(NewPrincipal(12, "org2", []string{models.GroupOrganizers}), e))
	assert.True(t, CanEdit(NewPrincipal(13, "admin", []string{models.GroupAdministrators}), e))
	assert.False(t, CanEdit(Anonymous(), e))
}

func TestCanDelete_OrganizerAloneIsNotEnough(t *testing.T) {
	e := publicEvent(10, models.EventStatePublished)

	assert.False(t, CanDelete(NewPrincipal(10, "org", []string{models.GroupOrganizers}), e))
	assert.True(t, CanEdit(NewPrincipal(10, "org", []string{models.GroupOrganizers}), e))
	assert.True(t, CanDelete(NewPrincipal(13, "admin", []string{models.GroupAdministrators}), e))
	assert.False(t, CanDelete(Anonymous(), e))
}

func TestPrincipal_Capabilities(t *testing.T) {
	org := NewPrincipal(1, "org", []string{models.GroupOrganizers})
	assert.True(t, org.Has(AddEvent))
	assert.True(t, org.Has(ViewPrivateEvents))
	assert.False(t, org.Has(DeleteEvent))
	assert.False(t, org.Has(ManageAllEvents))
	assert.True(t, org.InGroup(models.GroupOrganizers))

	att := NewPrincipal(2, "att", []string{models.GroupAttendees, "Desconocido"})
	assert.True(t, att.Has(ViewEvent))
	assert.False(t, att.Has(AddEvent))

	assert.False(t, Anonymous().Has(ViewEvent))
	assert.Equal(t, []string{models.GroupAdministrators, models.GroupAttendees, models.GroupOrganizers}, GroupNames())
}
