package repository

import (
	"context"
	"database/sql"
	"errors"

	"eventplatform/internal/database"
	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
	"eventplatform/internal/workflow"
)

type RegistrationRepository struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, user_id, event_id, state, comments, created_at`

func scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	err := row.Scan(
		&reg.ID,
		&reg.UserID,
		&reg.EventID,
		&reg.State,
		&reg.Comments,
		&reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Get returns the user's registration for the event in any state
func (r *RegistrationRepository) Get(ctx context.Context, eventID, userID int64) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND user_id = $2`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return reg, err
}

// StatesForUser maps event id to the state of the user's registration, for rows in any state
func (r *RegistrationRepository) StatesForUser(ctx context.Context, userID int64) (map[int64]string, error) {
	rows, err := r.db.QueryWithRetry(ctx,
		`SELECT event_id, state FROM registrations WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[int64]string)
	for rows.Next() {
		var eventID int64
		var state string
		if err := rows.Scan(&eventID, &state); err != nil {
			return nil, err
		}
		states[eventID] = state
	}
	return states, rows.Err()
}

func (r *RegistrationRepository) CountForUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}

// Transition applies fn to the user's registration while holding the event row lock.
// The confirmed count is read under the same lock, so concurrent fresh registrations
// cannot both take the last seat.
func (r *RegistrationRepository) Transition(ctx context.Context, eventID, userID int64, fn workflow.Transition) (*models.Registration, workflow.Outcome, error) {
	var (
		result  *models.Registration
		outcome workflow.Outcome
	)

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var capacity int
		err := tx.QueryRowContext(ctx,
			`SELECT max_capacity FROM events WHERE id = $1 FOR UPDATE`, eventID,
		).Scan(&capacity)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return err
		}

		var confirmed int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND state = 'confirmed'`, eventID,
		).Scan(&confirmed)
		if err != nil {
			return err
		}

		current, err := scanRegistration(tx.QueryRowContext(ctx,
			`SELECT `+registrationColumns+` FROM registrations
			 WHERE event_id = $1 AND user_id = $2 FOR UPDATE`, eventID, userID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		state, out, err := fn(current, capacity-confirmed)
		if err != nil {
			return err
		}
		outcome = out

		switch {
		case !out.Changed():
			result = current
			return nil
		case current == nil:
			result, err = scanRegistration(tx.QueryRowContext(ctx, `
				INSERT INTO registrations (user_id, event_id, state)
				VALUES ($1, $2, $3)
				RETURNING `+registrationColumns, userID, eventID, state))
			return mapError(err)
		default:
			result, err = scanRegistration(tx.QueryRowContext(ctx, `
				UPDATE registrations SET state = $1
				WHERE id = $2
				RETURNING `+registrationColumns, state, current.ID))
			return err
		}
	})
	if err != nil {
		return nil, workflow.OutcomeNone, err
	}

	return result, outcome, nil
}
