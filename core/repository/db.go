package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// DB wraps the sql connection pool
type DB struct {
	*sql.DB
}

// NewDB opens a Postgres connection pool and verifies it.
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS training_jobs (
			name            TEXT PRIMARY KEY,
			status          TEXT NOT NULL,
			instance_type   TEXT NOT NULL,
			instance_count  INT NOT NULL,
			output_location TEXT NOT NULL,
			artifact_uri    TEXT,
			failure_reason  TEXT,
			spec_yaml       TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at      TIMESTAMPTZ,
			completed_at    TIMESTAMPTZ,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS job_events (
			id          BIGSERIAL PRIMARY KEY,
			job_name    TEXT NOT NULL REFERENCES training_jobs(name),
			from_status TEXT,
			to_status   TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS job_artifacts (
			id         BIGSERIAL PRIMARY KEY,
			job_name   TEXT NOT NULL REFERENCES training_jobs(name),
			type       TEXT NOT NULL,
			uri        TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := db.Exec(schema)
	return err
}
