package models

import (
	"time"
)

// Event states
const (
	EventStateDraft     = "draft"
	EventStatePublished = "published"
	EventStateCancelled = "cancelled"
	EventStateFinished  = "finished"
)

// Event visibility
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Registration states
const (
	RegistrationPending   = "pending"
	RegistrationConfirmed = "confirmed"
	RegistrationCancelled = "cancelled"
)

// Role groups created by the setup command
const (
	GroupAdministrators = "Administradores"
	GroupOrganizers     = "Organizadores"
	GroupAttendees      = "Asistentes"
)

// User represents a user in the system
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	LastLoggedIn time.Time `json:"last_logged_in" db:"last_logged_in"`
	Groups       []string  `json:"groups,omitempty"` // Not from DB row, filled separately
}

// EventType classifies events (Conferencia, Concierto, ...)
type EventType struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Event represents an event in the system
type Event struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	EventTypeID int64     `json:"event_type_id" db:"event_type_id"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	Location    string    `json:"location" db:"location"`
	MaxCapacity int       `json:"max_capacity" db:"max_capacity"`
	State       string    `json:"state" db:"state"`
	Visibility  string    `json:"visibility" db:"visibility"`
	OrganizerID int64     `json:"organizer_id" db:"organizer_id"`
	Price       string    `json:"price" db:"price"`
	Image       *string   `json:"image,omitempty" db:"image"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Computed by the store from confirmed registrations
	ConfirmedCount int `json:"confirmed_count" db:"confirmed_count"`
}

// AvailableSeats is capacity minus confirmed registrations; negative when capacity
// was lowered below the confirmed count.
func (e *Event) AvailableSeats() int {
	return e.MaxCapacity - e.ConfirmedCount
}

// IsActive reports whether the event has not finished yet.
func (e *Event) IsActive(now time.Time) bool {
	return now.Before(e.EndTime)
}

func (e *Event) IsPublic() bool {
	return e.Visibility == VisibilityPublic
}

// Registration links a user to an event
type Registration struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	EventID   int64     `json:"event_id" db:"event_id"`
	State     string    `json:"state" db:"state"`
	Comments  string    `json:"comments" db:"comments"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Session is what the session store keeps per cookie token
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Groups    []string  `json:"groups"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventFilter narrows event listings
type EventFilter struct {
	Search      string
	EventTypeID int64
	IDs         []int64 // restrict to these ids when non-nil
}

// ProfileStats summarises a user's activity
type ProfileStats struct {
	EventsOrganized  int `json:"eventos_organizados"`
	EventsPublished  int `json:"eventos_activos"`
	EventsRegistered int `json:"eventos_registrado"`
}
