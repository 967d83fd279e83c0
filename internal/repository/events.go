package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"eventplatform/internal/database"
	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	e.id, e.title, e.description, e.event_type_id, e.start_time, e.end_time, e.location,
	e.max_capacity, e.state, e.visibility, e.organizer_id, e.price::text, e.image,
	e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id AND r.state = 'confirmed')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var image sql.NullString

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.EventTypeID,
		&event.StartTime,
		&event.EndTime,
		&event.Location,
		&event.MaxCapacity,
		&event.State,
		&event.Visibility,
		&event.OrganizerID,
		&event.Price,
		&image,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.ConfirmedCount,
	)
	if err != nil {
		return nil, err
	}

	if image.Valid {
		event.Image = &image.String
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, event_type_id, start_time, end_time, location,
		                    max_capacity, state, visibility, organizer_id, price, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.EventTypeID,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.MaxCapacity,
		event.State,
		event.Visibility,
		event.OrganizerID,
		event.Price,
		event.Image,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	return mapError(err)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return event, err
}

// List returns events matching the filter ordered by start time, newest first.
// Visibility is decided by the caller.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var args []any
	argIndex := 1

	sqlQuery := `SELECT ` + eventColumns + ` FROM events e WHERE 1=1`

	if search := strings.TrimSpace(filter.Search); search != "" {
		sqlQuery += fmt.Sprintf(" AND (e.title ILIKE $%d OR e.description ILIKE $%d OR e.location ILIKE $%d)",
			argIndex, argIndex, argIndex)
		args = append(args, "%"+escapeLike(search)+"%")
		argIndex++
	}

	if filter.EventTypeID > 0 {
		sqlQuery += fmt.Sprintf(" AND e.event_type_id = $%d", argIndex)
		args = append(args, filter.EventTypeID)
		argIndex++
	}

	if filter.IDs != nil {
		sqlQuery += fmt.Sprintf(" AND e.id = ANY($%d)", argIndex)
		args = append(args, pq.Array(filter.IDs))
	}

	sqlQuery += " ORDER BY e.start_time DESC, e.id DESC"

	rows, err := r.db.QueryWithRetry(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListByOrganizer returns the organizer's events, most recently created first
func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.organizer_id = $1
		ORDER BY e.created_at DESC, e.id DESC`

	rows, err := r.db.QueryWithRetry(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// CountByOrganizer returns how many events the user organizes and how many of them are published
func (r *EventRepository) CountByOrganizer(ctx context.Context, organizerID int64) (total, published int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE state = 'published')
		FROM events
		WHERE organizer_id = $1`

	err = r.db.QueryRowContext(ctx, query, organizerID).Scan(&total, &published)
	return total, published, err
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, event_type_id = $3, start_time = $4, end_time = $5,
		    location = $6, max_capacity = $7, state = $8, visibility = $9, price = $10,
		    image = $11, updated_at = $12
		WHERE id = $13`

	event.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.EventTypeID,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.MaxCapacity,
		event.State,
		event.Visibility,
		event.Price,
		event.Image,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}

// Delete removes the event; registrations go with it through the foreign key
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func collectEvents(rows *sql.Rows) ([]models.Event, error) {
	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
