package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

func TestRegister_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		current   *models.Registration
		available int
		wantState string
		wantOut   Outcome
		wantErr   error
	}{
		{"fresh with seats", nil, 3, models.RegistrationConfirmed, OutcomeCreated, nil},
		{"fresh without seats", nil, 0, "", OutcomeNone, apperrors.ErrCapacityExceeded},
		{"fresh overbooked", nil, -2, "", OutcomeNone, apperrors.ErrCapacityExceeded},
		{"already confirmed", &models.Registration{State: models.RegistrationConfirmed}, 5, models.RegistrationConfirmed, OutcomeAlreadyRegistered, nil},
		{"cancelled reactivates", &models.Registration{State: models.RegistrationCancelled}, 5, models.RegistrationConfirmed, OutcomeReactivated, nil},
		{"cancelled reactivates when full", &models.Registration{State: models.RegistrationCancelled}, 0, models.RegistrationConfirmed, OutcomeReactivated, nil},
		{"pending stays pending", &models.Registration{State: models.RegistrationPending}, 5, models.RegistrationPending, OutcomePending, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, out, err := Register(tt.current, tt.available)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantOut, out)
		})
	}
}

func TestCancel_Transitions(t *testing.T) {
	_, _, err := Cancel(nil, 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = Cancel(&models.Registration{State: models.RegistrationCancelled}, 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = Cancel(&models.Registration{State: models.RegistrationPending}, 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	state, out, err := Cancel(&models.Registration{State: models.RegistrationConfirmed}, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationCancelled, state)
	assert.Equal(t, OutcomeCancelled, out)
	assert.True(t, out.Changed())
}

func TestOutcome_Changed(t *testing.T) {
	assert.True(t, OutcomeCreated.Changed())
	assert.True(t, OutcomeReactivated.Changed())
	assert.False(t, OutcomeAlreadyRegistered.Changed())
	assert.False(t, OutcomePending.Changed())
	assert.Equal(t, "already_registered", OutcomeAlreadyRegistered.String())
}
