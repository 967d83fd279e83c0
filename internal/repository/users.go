package repository

import (
	"context"
	"database/sql"
	"errors"

	"eventplatform/internal/database"
	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, username, email, password_hash, is_active, registered_at, last_logged_in`

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.UserID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.RegisteredAt,
		&user.LastLoggedIn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.Groups, err = r.Groups(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "user_id = $1", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

// Groups returns the names of the user's role groups
func (r *UserRepository) Groups(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.name
		FROM groups g
		JOIN user_groups ug ON ug.group_id = g.id
		WHERE ug.user_id = $1
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		groups = append(groups, name)
	}
	return groups, rows.Err()
}

// CreateWithGroup inserts the user and its group membership in one transaction.
// A missing group aborts the whole operation with ErrGroupNotFound.
func (r *UserRepository) CreateWithGroup(ctx context.Context, user *models.User, group string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var groupID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM groups WHERE name = $1`, group).Scan(&groupID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrGroupNotFound
		}
		if err != nil {
			return err
		}

		query := `
			INSERT INTO users (username, email, password_hash, is_active)
			VALUES ($1, $2, $3, $4)
			RETURNING user_id, registered_at, last_logged_in`

		err = tx.QueryRowContext(ctx, query,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.IsActive,
		).Scan(&user.UserID, &user.RegisteredAt, &user.LastLoggedIn)
		if err != nil {
			return mapError(err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)`, user.UserID, groupID); err != nil {
			return err
		}

		user.Groups = []string{group}
		return nil
	})
}

// AddToGroup is idempotent
func (r *UserRepository) AddToGroup(ctx context.Context, userID int64, group string) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_groups (user_id, group_id)
		SELECT $1, id FROM groups WHERE name = $2
		ON CONFLICT DO NOTHING`, userID, group)
	if err != nil {
		return mapError(err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM groups WHERE name = $1)`, group).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrGroupNotFound
		}
	}
	return nil
}

// EnsureGroup creates the group if it does not exist yet
func (r *UserRepository) EnsureGroup(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return err
}

func (r *UserRepository) TouchLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_logged_in = NOW() WHERE user_id = $1`, userID)
	return err
}

// SetActive toggles the account; inactive users cannot log in and lose their sessions
func (r *UserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $2 WHERE user_id = $1`, userID, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
