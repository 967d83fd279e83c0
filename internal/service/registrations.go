package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/logger"
	"eventplatform/internal/metrics"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"
	"eventplatform/internal/workflow"
)

const (
	MsgRegistered        = "Te has registrado exitosamente al evento."
	MsgAlreadyRegistered = "Ya estás registrado en este evento."
	MsgPending           = "Tu registro está pendiente de confirmación."
	MsgCapacityExceeded  = "Este evento ha alcanzado su capacidad máxima."
	MsgCancelledFormat   = "Has cancelado tu registro al evento \"%s\"."
)

type RegistrationService struct {
	events        EventStore
	registrations RegistrationStore
	publisher     Publisher
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewRegistrationService(deps Deps) *RegistrationService {
	return &RegistrationService{
		events:        deps.Events,
		registrations: deps.Registrations,
		publisher:     deps.Publisher,
		metrics:       deps.Metrics,
		now:           deps.Now,
	}
}

// Register runs the register workflow for the principal.
//
// Informational outcomes come back as ErrAlreadyRegistered or ErrRegistrationPending;
// nothing is written in those cases.
func (s *RegistrationService) Register(ctx context.Context, p permissions.Principal, eventID int64) (*models.RegistrationResponse, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrUnauthorized
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	_, err = s.registrations.Get(ctx, eventID, p.UserID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	if !permissions.CanView(p, event, err == nil) {
		s.metrics.RegistrationOutcome("not_visible")
		return nil, apperrors.ErrNotFound
	}

	reg, outcome, err := s.registrations.Transition(ctx, eventID, p.UserID, workflow.Register)
	if err != nil {
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			s.metrics.RegistrationOutcome("capacity_exceeded")
		}
		return nil, err
	}
	s.metrics.RegistrationOutcome(outcome.String())

	switch outcome {
	case workflow.OutcomeAlreadyRegistered:
		return nil, apperrors.ErrAlreadyRegistered
	case workflow.OutcomePending:
		return nil, apperrors.ErrRegistrationPending
	}

	available, err := s.availableSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx)
	subject := models.EventRegistrationConfirmed
	if outcome == workflow.OutcomeReactivated {
		subject = models.EventRegistrationReactivate
		if available < 0 {
			log.Warn("Reactivated registration over-books event",
				"event_id", eventID,
				"registration_id", reg.ID,
				"available_seats", available)
		}
	}
	log.Info("Registration confirmed", "event_id", eventID, "registration_id", reg.ID, "outcome", outcome.String())

	s.published(ctx, subject, reg, available)

	return &models.RegistrationResponse{
		Status:         outcome.String(),
		Message:        MsgRegistered,
		Registration:   reg,
		AvailableSeats: available,
	}, nil
}

// Cancel moves the principal's confirmed registration to cancelled
func (s *RegistrationService) Cancel(ctx context.Context, p permissions.Principal, eventID int64) (*models.RegistrationResponse, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrUnauthorized
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	reg, outcome, err := s.registrations.Transition(ctx, eventID, p.UserID, workflow.Cancel)
	if err != nil {
		return nil, err
	}
	s.metrics.RegistrationOutcome(outcome.String())

	available, err := s.availableSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Registration cancelled", "event_id", eventID, "registration_id", reg.ID)
	s.published(ctx, models.EventRegistrationCancelled, reg, available)

	return &models.RegistrationResponse{
		Status:         outcome.String(),
		Message:        fmt.Sprintf(MsgCancelledFormat, event.Title),
		Registration:   reg,
		AvailableSeats: available,
	}, nil
}

func (s *RegistrationService) availableSeats(ctx context.Context, eventID int64) (int, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to reload event: %w", err)
	}
	return event.AvailableSeats(), nil
}

func (s *RegistrationService) published(ctx context.Context, subject string, reg *models.Registration, available int) {
	publish(ctx, s.publisher, s.metrics, subject, models.RegistrationChangedEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		State:          reg.State,
		AvailableSeats: available,
		Timestamp:      s.now(),
	})
}
