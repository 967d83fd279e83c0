// Package workflow implements the registration state machine. It is pure:
// stores call it with the current row and the seat count they read under lock.
package workflow

import (
	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

// Outcome describes what a transition did.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCreated
	OutcomeReactivated
	OutcomeAlreadyRegistered
	OutcomePending
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeReactivated:
		return "reactivated"
	case OutcomeAlreadyRegistered:
		return "already_registered"
	case OutcomePending:
		return "pending"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Changed reports whether the outcome requires a write.
func (o Outcome) Changed() bool {
	return o == OutcomeCreated || o == OutcomeReactivated || o == OutcomeCancelled
}

// Transition is applied by a store to the locked (event, registration) pair.
// current is nil when no row exists. It returns the state to persist.
type Transition func(current *models.Registration, availableSeats int) (string, Outcome, error)

// Register moves a registration towards confirmed.
//
// Reactivating a cancelled row does not re-check capacity.
func Register(current *models.Registration, availableSeats int) (string, Outcome, error) {
	if current == nil {
		if availableSeats <= 0 {
			return "", OutcomeNone, apperrors.ErrCapacityExceeded
		}
		return models.RegistrationConfirmed, OutcomeCreated, nil
	}

	switch current.State {
	case models.RegistrationConfirmed:
		return current.State, OutcomeAlreadyRegistered, nil
	case models.RegistrationCancelled:
		return models.RegistrationConfirmed, OutcomeReactivated, nil
	default:
		return current.State, OutcomePending, nil
	}
}

// Cancel moves a confirmed registration to cancelled. Anything else is not found.
func Cancel(current *models.Registration, _ int) (string, Outcome, error) {
	if current == nil || current.State != models.RegistrationConfirmed {
		return "", OutcomeNone, apperrors.ErrNotFound
	}
	return models.RegistrationCancelled, OutcomeCancelled, nil
}
