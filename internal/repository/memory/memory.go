// Package memory is an in-process implementation of the stores. It backs the
// service and handler tests and the command tests of cmd/reindex and cmd/generator.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
	"eventplatform/internal/workflow"
)

// Store holds every table behind one lock
type Store struct {
	mu sync.Mutex

	nextID        int64
	users         map[int64]*models.User
	groups        map[string]bool
	eventTypes    map[int64]*models.EventType
	events        map[int64]*models.Event
	registrations map[int64]*models.Registration
	sessions      map[string]*models.Session

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:         make(map[int64]*models.User),
		groups:        make(map[string]bool),
		eventTypes:    make(map[int64]*models.EventType),
		events:        make(map[int64]*models.Event),
		registrations: make(map[int64]*models.Registration),
		sessions:      make(map[string]*models.Session),
		now:           time.Now,
	}
}

// SetClock replaces the time source for created/updated stamps and session expiry
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Events() *EventRepository               { return &EventRepository{s} }
func (s *Store) EventTypes() *EventTypeRepository       { return &EventTypeRepository{s} }
func (s *Store) Registrations() *RegistrationRepository { return &RegistrationRepository{s} }
func (s *Store) Users() *UserRepository                 { return &UserRepository{s} }
func (s *Store) Sessions() *SessionRepository           { return &SessionRepository{s} }

func (s *Store) confirmed(eventID int64) int {
	n := 0
	for _, r := range s.registrations {
		if r.EventID == eventID && r.State == models.RegistrationConfirmed {
			n++
		}
	}
	return n
}

func (s *Store) eventCopy(e *models.Event) models.Event {
	c := *e
	c.ConfirmedCount = s.confirmed(e.ID)
	return c
}

// EventRepository

type EventRepository struct{ s *Store }

func (r *EventRepository) Create(_ context.Context, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.eventTypes[event.EventTypeID]; !ok {
		return apperrors.ErrNotFound
	}
	if _, ok := r.s.users[event.OrganizerID]; !ok {
		return apperrors.ErrNotFound
	}

	now := r.s.now()
	event.ID = r.s.id()
	event.CreatedAt = now
	event.UpdatedAt = now

	stored := *event
	stored.ConfirmedCount = 0
	r.s.events[event.ID] = &stored
	return nil
}

func (r *EventRepository) GetByID(_ context.Context, id int64) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := r.s.eventCopy(e)
	return &c, nil
}

func (r *EventRepository) Update(_ context.Context, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.events[event.ID]
	if !ok {
		return apperrors.ErrNotFound
	}

	event.UpdatedAt = r.s.now()
	stored := *event
	stored.OrganizerID = current.OrganizerID
	stored.CreatedAt = current.CreatedAt
	r.s.events[event.ID] = &stored
	return nil
}

// Delete cascades to the event's registrations
func (r *EventRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.events, id)
	for rid, reg := range r.s.registrations {
		if reg.EventID == id {
			delete(r.s.registrations, rid)
		}
	}
	return nil
}

func (r *EventRepository) List(_ context.Context, filter models.EventFilter) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids map[int64]bool
	if filter.IDs != nil {
		ids = make(map[int64]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	events := []models.Event{}
	for _, e := range r.s.events {
		if ids != nil && !ids[e.ID] {
			continue
		}
		if filter.EventTypeID > 0 && e.EventTypeID != filter.EventTypeID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Title), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(e.Location), search) {
			continue
		}
		events = append(events, r.s.eventCopy(e))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID > events[j].ID
		}
		return events[i].StartTime.After(events[j].StartTime)
	})
	return events, nil
}

func (r *EventRepository) ListByOrganizer(_ context.Context, organizerID int64) ([]models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	events := []models.Event{}
	for _, e := range r.s.events {
		if e.OrganizerID == organizerID {
			events = append(events, r.s.eventCopy(e))
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (r *EventRepository) CountByOrganizer(_ context.Context, organizerID int64) (total, published int, err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.events {
		if e.OrganizerID != organizerID {
			continue
		}
		total++
		if e.State == models.EventStatePublished {
			published++
		}
	}
	return total, published, nil
}

// EventTypeRepository

type EventTypeRepository struct{ s *Store }

func (r *EventTypeRepository) List(_ context.Context) ([]models.EventType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	types := make([]models.EventType, 0, len(r.s.eventTypes))
	for _, t := range r.s.eventTypes {
		types = append(types, *t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

func (r *EventTypeRepository) GetByID(_ context.Context, id int64) (*models.EventType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.eventTypes[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *EventTypeRepository) Ensure(_ context.Context, t *models.EventType) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.eventTypes {
		if existing.Name == t.Name {
			*t = *existing
			return false, nil
		}
	}

	t.ID = r.s.id()
	c := *t
	r.s.eventTypes[t.ID] = &c
	return true, nil
}

// RegistrationRepository

type RegistrationRepository struct{ s *Store }

func (r *RegistrationRepository) find(eventID, userID int64) *models.Registration {
	for _, reg := range r.s.registrations {
		if reg.EventID == eventID && reg.UserID == userID {
			return reg
		}
	}
	return nil
}

func (r *RegistrationRepository) Get(_ context.Context, eventID, userID int64) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg := r.find(eventID, userID)
	if reg == nil {
		return nil, apperrors.ErrNotFound
	}
	c := *reg
	return &c, nil
}

func (r *RegistrationRepository) StatesForUser(_ context.Context, userID int64) (map[int64]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	states := make(map[int64]string)
	for _, reg := range r.s.registrations {
		if reg.UserID == userID {
			states[reg.EventID] = reg.State
		}
	}
	return states, nil
}

func (r *RegistrationRepository) CountForUser(_ context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, reg := range r.s.registrations {
		if reg.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Transition holds the store lock for the read and the write
func (r *RegistrationRepository) Transition(_ context.Context, eventID, userID int64, fn workflow.Transition) (*models.Registration, workflow.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event, ok := r.s.events[eventID]
	if !ok {
		return nil, workflow.OutcomeNone, apperrors.ErrNotFound
	}

	current := r.find(eventID, userID)
	var snapshot *models.Registration
	if current != nil {
		c := *current
		snapshot = &c
	}

	state, outcome, err := fn(snapshot, event.MaxCapacity-r.s.confirmed(eventID))
	if err != nil {
		return nil, workflow.OutcomeNone, err
	}

	if !outcome.Changed() {
		return snapshot, outcome, nil
	}

	if current == nil {
		current = &models.Registration{
			ID:        r.s.id(),
			UserID:    userID,
			EventID:   eventID,
			CreatedAt: r.s.now(),
		}
		r.s.registrations[current.ID] = current
	}
	current.State = state

	c := *current
	return &c, outcome, nil
}

// UserRepository

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *UserRepository) CreateWithGroup(_ context.Context, user *models.User, group string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.groups[group] {
		return apperrors.ErrGroupNotFound
	}
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return apperrors.ErrDuplicate
		}
	}

	now := r.s.now()
	user.UserID = r.s.id()
	user.RegisteredAt = now
	user.LastLoggedIn = now
	user.Groups = []string{group}

	r.s.users[user.UserID] = copyUser(user)
	return nil
}

func (r *UserRepository) AddToGroup(_ context.Context, userID int64, group string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.groups[group] {
		return apperrors.ErrGroupNotFound
	}
	u, ok := r.s.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for _, g := range u.Groups {
		if g == group {
			return nil
		}
	}
	u.Groups = append(u.Groups, group)
	sort.Strings(u.Groups)
	return nil
}

func (r *UserRepository) EnsureGroup(_ context.Context, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.groups[name] = true
	return nil
}

func (r *UserRepository) TouchLogin(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.LastLoggedIn = r.s.now()
	return nil
}

func (r *UserRepository) SetActive(_ context.Context, userID int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.IsActive = active
	return nil
}

// DeleteUser removes the user with their events and registrations
func (r *UserRepository) DeleteUser(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.users, userID)

	for id, e := range r.s.events {
		if e.OrganizerID == userID {
			delete(r.s.events, id)
		}
	}
	for id, reg := range r.s.registrations {
		_, eventAlive := r.s.events[reg.EventID]
		if reg.UserID == userID || !eventAlive {
			delete(r.s.registrations, id)
		}
	}
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Groups = append([]string(nil), u.Groups...)
	return &c
}

// SessionRepository

type SessionRepository struct{ s *Store }

func (r *SessionRepository) SaveSession(_ context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *session
	r.s.sessions[session.Token] = &c
	return nil
}

func (r *SessionRepository) GetSession(_ context.Context, token string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[token]
	if !ok || !session.ExpiresAt.After(r.s.now()) {
		return nil, apperrors.ErrNotFound
	}
	c := *session
	return &c, nil
}

func (r *SessionRepository) DeleteSession(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.sessions, token)
	return nil
}
