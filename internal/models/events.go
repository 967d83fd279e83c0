package models

import "time"

// NATS Event Types
const (
	EventEventCreated           = "event.created"
	EventEventUpdated           = "event.updated"
	EventEventDeleted           = "event.deleted"
	EventRegistrationConfirmed  = "registration.confirmed"
	EventRegistrationReactivate = "registration.reactivated"
	EventRegistrationCancelled  = "registration.cancelled"
	EventUserRegistered         = "user.registered"
)

// EventChangedEvent is published on event create/update/delete
type EventChangedEvent struct {
	EventID   int64     `json:"event_id"`
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// RegistrationChangedEvent is published on every registration state change
type RegistrationChangedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	State          string    `json:"state"`
	AvailableSeats int       `json:"available_seats"`
	Timestamp      time.Time `json:"timestamp"`
}

// UserRegisteredEvent is published after account creation
type UserRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Group     string    `json:"group"`
	Timestamp time.Time `json:"timestamp"`
}
