// Package permissions holds the capability table for role groups and the
// visibility and edit rules for events.
package permissions

import (
	"sort"

	"eventplatform/internal/models"
)

// Capability is a named permission granted through group membership.
type Capability string

const (
	ManageAllEvents   Capability = "manage_all_events"
	ViewPrivateEvents Capability = "view_private_events"

	AddEvent    Capability = "add_event"
	ChangeEvent Capability = "change_event"
	ViewEvent   Capability = "view_event"
	DeleteEvent Capability = "delete_event"

	AddRegistration    Capability = "add_registration"
	ChangeRegistration Capability = "change_registration"
	ViewRegistration   Capability = "view_registration"
	DeleteRegistration Capability = "delete_registration"
)

// GroupCapabilities maps each role group to its fixed capability bundle.
var GroupCapabilities = map[string][]Capability{
	models.GroupAdministrators: {
		AddEvent, ChangeEvent, ViewEvent, DeleteEvent,
		AddRegistration, ChangeRegistration, ViewRegistration, DeleteRegistration,
		ManageAllEvents, ViewPrivateEvents,
	},
	models.GroupOrganizers: {
		AddEvent, ChangeEvent, ViewEvent,
		ViewRegistration, ChangeRegistration,
		ViewPrivateEvents,
	},
	models.GroupAttendees: {
		ViewEvent,
		ViewRegistration,
	},
}

// GroupNames returns the configured groups in a stable order.
func GroupNames() []string {
	names := make([]string, 0, len(GroupCapabilities))
	for name := range GroupCapabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Principal is the identity a request acts as. The zero value is anonymous.
type Principal struct {
	UserID   int64
	Username string
	Groups   []string

	caps map[Capability]struct{}
}

// NewPrincipal resolves the capabilities of the given groups. Unknown groups grant nothing.
func NewPrincipal(userID int64, username string, groups []string) Principal {
	p := Principal{
		UserID:   userID,
		Username: username,
		Groups:   groups,
		caps:     make(map[Capability]struct{}),
	}
	for _, g := range groups {
		for _, c := range GroupCapabilities[g] {
			p.caps[c] = struct{}{}
		}
	}
	return p
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{}
}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != 0
}

func (p Principal) Has(c Capability) bool {
	if !p.IsAuthenticated() {
		return false
	}
	_, ok := p.caps[c]
	return ok
}

func (p Principal) InGroup(group string) bool {
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// CanView decides whether p may see e. hasRegistration reports whether any
// registration row links p to e, whatever its state.
func CanView(p Principal, e *models.Event, hasRegistration bool) bool {
	if e.IsPublic() {
		return true
	}
	if !p.IsAuthenticated() {
		return false
	}
	if e.OrganizerID == p.UserID {
		return true
	}
	if p.Has(ManageAllEvents) || p.Has(ViewPrivateEvents) {
		return true
	}
	return hasRegistration
}

// CanEdit: the organizer or anyone managing all events.
func CanEdit(p Principal, e *models.Event) bool {
	if !p.IsAuthenticated() {
		return false
	}
	return e.OrganizerID == p.UserID || p.Has(ManageAllEvents)
}

// CanDelete is stricter than CanEdit: the organizer alone is not enough.
func CanDelete(p Principal, e *models.Event) bool {
	return p.Has(ManageAllEvents)
}
