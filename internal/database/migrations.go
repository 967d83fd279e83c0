package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createGroupsTable,
		createUserGroupsTable,
		createEventTypesTable,
		createEventsTable,
		createRegistrationsTable,
		createEventsStartTimeIndex,
		createEventsOrganizerIndex,
		createRegistrationsEventIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    username VARCHAR(150) UNIQUE NOT NULL,
    email VARCHAR(254) NOT NULL,
    password_hash VARCHAR(100) NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_logged_in TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createGroupsTable = `
CREATE TABLE IF NOT EXISTS groups (
    id SERIAL PRIMARY KEY,
    name VARCHAR(150) UNIQUE NOT NULL
);`

const createUserGroupsTable = `
CREATE TABLE IF NOT EXISTS user_groups (
    user_id INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,

    PRIMARY KEY (user_id, group_id)
);`

const createEventTypesTable = `
CREATE TABLE IF NOT EXISTS event_types (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) UNIQUE NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL,
    event_type_id INTEGER NOT NULL REFERENCES event_types(id) ON DELETE CASCADE,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    location VARCHAR(300) NOT NULL,
    max_capacity INTEGER NOT NULL,
    state VARCHAR(20) NOT NULL DEFAULT 'draft',
    visibility VARCHAR(20) NOT NULL DEFAULT 'public',
    organizer_id INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    price NUMERIC(10,2) NOT NULL DEFAULT 0,
    image VARCHAR(255),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (max_capacity > 0),
    CHECK (price >= 0),
    CHECK (state IN ('draft', 'published', 'cancelled', 'finished')),
    CHECK (visibility IN ('public', 'private'))
);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    state VARCHAR(20) NOT NULL DEFAULT 'pending',
    comments TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, event_id),
    CHECK (state IN ('pending', 'confirmed', 'cancelled'))
);`

const createEventsStartTimeIndex = `
CREATE INDEX IF NOT EXISTS events_start_time_idx
ON events (start_time DESC);`

const createEventsOrganizerIndex = `
CREATE INDEX IF NOT EXISTS events_organizer_id_idx
ON events (organizer_id, created_at DESC);`

const createRegistrationsEventIndex = `
CREATE INDEX IF NOT EXISTS registrations_event_state_idx
ON registrations (event_id, state);`
