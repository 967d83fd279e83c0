package repository

import (
	"context"
	"database/sql"
	"errors"

	"eventplatform/internal/database"
	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

type EventTypeRepository struct {
	db *database.DB
}

func NewEventTypeRepository(db *database.DB) *EventTypeRepository {
	return &EventTypeRepository{db: db}
}

// List returns the catalog ordered by name
func (r *EventTypeRepository) List(ctx context.Context) ([]models.EventType, error) {
	rows, err := r.db.QueryWithRetry(ctx, `SELECT id, name, description FROM event_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []models.EventType{}
	for rows.Next() {
		var t models.EventType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *EventTypeRepository) GetByID(ctx context.Context, id int64) (*models.EventType, error) {
	t := &models.EventType{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM event_types WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return t, err
}

// Ensure inserts the type unless one with the same name exists and returns the stored row
func (r *EventTypeRepository) Ensure(ctx context.Context, t *models.EventType) (bool, error) {
	query := `
		INSERT INTO event_types (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, t.Name, t.Description).Scan(&t.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT id, description FROM event_types WHERE name = $1`, t.Name,
	).Scan(&t.ID, &t.Description)
	return false, err
}
