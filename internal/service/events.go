package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/logger"
	"eventplatform/internal/metrics"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"
)

// LastPage asks List for the final page
const LastPage = -1

const (
	reasonMissingCapability = "No tienes permisos suficientes para realizar esta acción."
	reasonEditEvent         = "No tienes permisos para editar este evento"
	reasonDeleteEvent       = "Solo los administradores pueden eliminar eventos"
)

// ListQuery carries the listing filters from the query string
type ListQuery struct {
	Search      string
	EventTypeID int64
	Page        int
}

type EventService struct {
	events        EventStore
	eventTypes    EventTypeStore
	registrations RegistrationStore
	publisher     Publisher
	searcher      EventSearcher
	indexer       EventIndexer
	metrics       *metrics.Metrics
	pageSize      int
	now           func() time.Time
}

func NewEventService(deps Deps) *EventService {
	return &EventService{
		events:        deps.Events,
		eventTypes:    deps.EventTypes,
		registrations: deps.Registrations,
		publisher:     deps.Publisher,
		searcher:      deps.Searcher,
		indexer:       deps.Indexer,
		metrics:       deps.Metrics,
		pageSize:      deps.PageSize,
		now:           deps.Now,
	}
}

// List returns one page of the events the principal may view, newest start first.
// Pages outside the result range are ErrNotFound, except page 1 of an empty result.
func (s *EventService) List(ctx context.Context, p permissions.Principal, q ListQuery) (*models.ListEventsResponse, error) {
	types, err := s.eventTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list event types: %w", err)
	}

	events, err := s.searchEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	states, err := s.registrationStates(ctx, p)
	if err != nil {
		return nil, err
	}

	visible := events[:0]
	for i := range events {
		_, registered := states[events[i].ID]
		if permissions.CanView(p, &events[i], registered) {
			visible = append(visible, events[i])
		}
	}

	total := len(visible)
	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	page := q.Page
	if page == LastPage {
		page = totalPages
	}
	if page < 1 || page > totalPages {
		return nil, apperrors.ErrNotFound
	}

	start := (page - 1) * s.pageSize
	end := min(start+s.pageSize, total)

	typeNames := eventTypeNames(types)
	items := make([]models.EventResponse, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, s.toResponse(&visible[i], typeNames))
	}

	selected := ""
	if q.EventTypeID > 0 {
		selected = strconv.FormatInt(q.EventTypeID, 10)
	}

	return &models.ListEventsResponse{
		Events:     items,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: totalPages,
		Total:      total,
		Search:     q.Search,
		EventType:  selected,
		EventTypes: types,
	}, nil
}

// searchEvents asks the index for candidates when a text query is present and
// falls back to SQL matching when the index is unavailable.
func (s *EventService) searchEvents(ctx context.Context, q ListQuery) ([]models.Event, error) {
	filter := models.EventFilter{Search: q.Search, EventTypeID: q.EventTypeID}

	if q.Search != "" && s.searcher != nil {
		ids, err := s.searcher.SearchIDs(ctx, q.Search, q.EventTypeID)
		if err == nil {
			filter.Search = ""
			filter.IDs = ids
		} else {
			s.metrics.SearchFallback()
			logger.WithContext(ctx).Warn("Search index unavailable, falling back to SQL",
				"error", err,
				"search", q.Search)
		}
	}

	return s.events.List(ctx, filter)
}

func (s *EventService) registrationStates(ctx context.Context, p permissions.Principal) (map[int64]string, error) {
	if !p.IsAuthenticated() {
		return nil, nil
	}
	states, err := s.registrations.StatesForUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}
	return states, nil
}

// Detail returns the event if the principal may view it; otherwise ErrNotFound
func (s *EventService) Detail(ctx context.Context, p permissions.Principal, id int64) (*models.EventDetailResponse, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var reg *models.Registration
	if p.IsAuthenticated() {
		reg, err = s.registrations.Get(ctx, id, p.UserID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to load registration: %w", err)
		}
	}

	if !permissions.CanView(p, event, reg != nil) {
		return nil, apperrors.ErrNotFound
	}

	typeNames, err := s.typeNames(ctx)
	if err != nil {
		return nil, err
	}

	return &models.EventDetailResponse{
		Event:        s.toResponse(event, typeNames),
		IsRegistered: reg != nil && reg.State == models.RegistrationConfirmed,
		CanEdit:      permissions.CanEdit(p, event),
		CanDelete:    permissions.CanDelete(p, event),
	}, nil
}

// FormOptions returns the choices for the create form
func (s *EventService) FormOptions(ctx context.Context, p permissions.Principal) (*models.EventFormResponse, error) {
	if err := requireCapability(p, permissions.AddEvent); err != nil {
		return nil, err
	}
	return s.formResponse(ctx, nil)
}

func (s *EventService) Create(ctx context.Context, p permissions.Principal, req *models.EventRequest) (*models.EventResponse, error) {
	if err := requireCapability(p, permissions.AddEvent); err != nil {
		return nil, err
	}

	typeExists, err := s.eventTypeExists(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}

	event := &models.Event{OrganizerID: p.UserID}
	if err := applyEventRequest(event, req, typeExists); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logger.WithContext(ctx).Info("Event created", "event_id", event.ID, "organizer_id", event.OrganizerID)
	s.mutated(ctx, models.EventEventCreated, "created", event.ID, p.UserID)
	s.reindex(ctx, event)

	typeNames, err := s.typeNames(ctx)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(event, typeNames)
	return &resp, nil
}

// EditForm returns the event and form choices for an editor
func (s *EventService) EditForm(ctx context.Context, p permissions.Principal, id int64) (*models.EventFormResponse, error) {
	event, err := s.loadForEdit(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.formResponse(ctx, event)
}

func (s *EventService) Update(ctx context.Context, p permissions.Principal, id int64, req *models.EventRequest) (*models.EventResponse, error) {
	event, err := s.loadForEdit(ctx, p, id)
	if err != nil {
		return nil, err
	}

	typeExists, err := s.eventTypeExists(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}

	if err := applyEventRequest(event, req, typeExists); err != nil {
		return nil, err
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if event.AvailableSeats() < 0 {
		logger.WithContext(ctx).Warn("Event capacity lowered below confirmed registrations",
			"event_id", event.ID,
			"max_capacity", event.MaxCapacity,
			"confirmed", event.ConfirmedCount)
	}

	s.mutated(ctx, models.EventEventUpdated, "updated", event.ID, p.UserID)
	s.reindex(ctx, event)

	typeNames, err := s.typeNames(ctx)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(event, typeNames)
	return &resp, nil
}

// DeleteCheck returns the event a deleter is about to remove
func (s *EventService) DeleteCheck(ctx context.Context, p permissions.Principal, id int64) (*models.EventResponse, error) {
	event, err := s.loadForDelete(ctx, p, id)
	if err != nil {
		return nil, err
	}

	typeNames, err := s.typeNames(ctx)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(event, typeNames)
	return &resp, nil
}

// Delete removes the event and, through the store, its registrations
func (s *EventService) Delete(ctx context.Context, p permissions.Principal, id int64) (*models.Event, error) {
	event, err := s.loadForDelete(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete event: %w", err)
	}

	logger.WithContext(ctx).Info("Event deleted", "event_id", id)
	s.mutated(ctx, models.EventEventDeleted, "deleted", id, p.UserID)
	if s.indexer != nil {
		if err := s.indexer.DeleteEvent(ctx, id); err != nil {
			logger.WithContext(ctx).Warn("Failed to remove event from search index", "event_id", id, "error", err)
		}
	}
	return event, nil
}

// MyEvents lists the events the principal organizes, most recently created first
func (s *EventService) MyEvents(ctx context.Context, p permissions.Principal) (*models.MyEventsResponse, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrUnauthorized
	}

	events, err := s.events.ListByOrganizer(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizer events: %w", err)
	}

	typeNames, err := s.typeNames(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.EventResponse, 0, len(events))
	for i := range events {
		items = append(items, s.toResponse(&events[i], typeNames))
	}

	return &models.MyEventsResponse{
		Events:    items,
		CanCreate: p.Has(permissions.AddEvent),
	}, nil
}

// loadForEdit checks the capability before the lookup, then ownership
func (s *EventService) loadForEdit(ctx context.Context, p permissions.Principal, id int64) (*models.Event, error) {
	if err := requireCapability(p, permissions.ChangeEvent); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !permissions.CanEdit(p, event) {
		return nil, apperrors.Forbidden(reasonEditEvent)
	}
	return event, nil
}

func (s *EventService) loadForDelete(ctx context.Context, p permissions.Principal, id int64) (*models.Event, error) {
	if err := requireCapability(p, permissions.DeleteEvent); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !permissions.CanDelete(p, event) {
		return nil, apperrors.Forbidden(reasonDeleteEvent)
	}
	return event, nil
}

func (s *EventService) formResponse(ctx context.Context, event *models.Event) (*models.EventFormResponse, error) {
	types, err := s.eventTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list event types: %w", err)
	}

	resp := &models.EventFormResponse{
		EventTypes: types,
		States: []string{
			models.EventStateDraft,
			models.EventStatePublished,
			models.EventStateCancelled,
			models.EventStateFinished,
		},
		Visibilities: []string{models.VisibilityPublic, models.VisibilityPrivate},
	}

	if event != nil {
		er := s.toResponse(event, eventTypeNames(types))
		resp.Event = &er
	}
	return resp, nil
}

func (s *EventService) eventTypeExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	_, err := s.eventTypes.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load event type: %w", err)
	}
	return true, nil
}

func (s *EventService) typeNames(ctx context.Context) (map[int64]string, error) {
	types, err := s.eventTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list event types: %w", err)
	}
	return eventTypeNames(types), nil
}

func (s *EventService) toResponse(e *models.Event, typeNames map[int64]string) models.EventResponse {
	return models.EventResponse{
		Event:          *e,
		EventTypeName:  typeNames[e.EventTypeID],
		AvailableSeats: e.AvailableSeats(),
		IsActive:       e.IsActive(s.now()),
	}
}

func (s *EventService) mutated(ctx context.Context, subject, action string, eventID, actorID int64) {
	s.metrics.EventMutation(action)
	publish(ctx, s.publisher, s.metrics, subject, models.EventChangedEvent{
		EventID:   eventID,
		ActorID:   actorID,
		Action:    action,
		Timestamp: s.now(),
	})
}

// reindex runs after the store write; a failure leaves the index stale
// until the consumer projection or cmd/reindex catches up
func (s *EventService) reindex(ctx context.Context, event *models.Event) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Warn("Failed to index event", "event_id", event.ID, "error", err)
	}
}

func eventTypeNames(types []models.EventType) map[int64]string {
	names := make(map[int64]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	return names
}

// requireCapability: anonymous callers are unauthorized, others forbidden
func requireCapability(p permissions.Principal, c permissions.Capability) error {
	if !p.IsAuthenticated() {
		return apperrors.ErrUnauthorized
	}
	if !p.Has(c) {
		return apperrors.Forbidden(reasonMissingCapability)
	}
	return nil
}
