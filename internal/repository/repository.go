package repository

import (
	"eventplatform/internal/database"
)

type Repositories struct {
	Events        *EventRepository
	EventTypes    *EventTypeRepository
	Registrations *RegistrationRepository
	Users         *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:        NewEventRepository(db),
		EventTypes:    NewEventTypeRepository(db),
		Registrations: NewRegistrationRepository(db),
		Users:         NewUserRepository(db),
	}
}
