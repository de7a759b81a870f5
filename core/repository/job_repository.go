package repository

import (
	"database/sql"
	"log"
	"time"

	"training-orchestrator/core/models"
)

// JobRepository handles database operations for training jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob records a newly submitted job along with its initial event.
func (r *JobRepository) CreateJob(job *models.TrainingJob, specYAML string) error {
	query := `
		INSERT INTO training_jobs (
			name, status, instance_type, instance_count, output_location,
			artifact_uri, failure_reason, spec_yaml, created_at, started_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	_, err := r.db.Exec(query,
		job.Name,
		job.Status,
		job.Spec.InstanceType,
		job.Spec.InstanceCount,
		job.Spec.OutputLocation,
		nullString(job.ArtifactLocation),
		nullString(job.FailureReason),
		specYAML,
		job.CreatedAt,
		job.StartedAt,
	)
	if err != nil {
		return err
	}
	return r.createEvent(nil, job.Name, nil, job.Status, "job_created")
}

// JobRecord is the persisted view of a job, enough for the REST surface
// and the status sync monitor.
type JobRecord struct {
	Name             string
	Status           models.JobStatus
	InstanceType     string
	InstanceCount    int
	OutputLocation   string
	ArtifactLocation string
	FailureReason    string
	SpecYAML         string
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

// GetJob retrieves a job by name
func (r *JobRepository) GetJob(name string) (*JobRecord, error) {
	query := `
		SELECT name, status, instance_type, instance_count, output_location,
			artifact_uri, failure_reason, spec_yaml, created_at, started_at,
			completed_at, updated_at
		FROM training_jobs
		WHERE name = $1
	`
	var rec JobRecord
	var artifactURI, failureReason sql.NullString
	var startedAt, completedAt sql.NullTime

	err := r.db.QueryRow(query, name).Scan(
		&rec.Name,
		&rec.Status,
		&rec.InstanceType,
		&rec.InstanceCount,
		&rec.OutputLocation,
		&artifactURI,
		&failureReason,
		&rec.SpecYAML,
		&rec.CreatedAt,
		&startedAt,
		&completedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if artifactURI.Valid {
		rec.ArtifactLocation = artifactURI.String
	}
	if failureReason.Valid {
		rec.FailureReason = failureReason.String
	}
	if startedAt.Valid {
		rec.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	return &rec, nil
}

// ListJobs lists jobs, newest first, optionally filtered by status.
func (r *JobRepository) ListJobs(status *models.JobStatus, limit int) ([]*JobRecord, error) {
	query := `
		SELECT name, status, instance_type, instance_count, output_location,
			artifact_uri, failure_reason, spec_yaml, created_at, started_at,
			completed_at, updated_at
		FROM training_jobs
	`
	args := []interface{}{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		if status != nil {
			query += " LIMIT $2"
		} else {
			query += " LIMIT $1"
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*JobRecord
	for rows.Next() {
		var rec JobRecord
		var artifactURI, failureReason sql.NullString
		var startedAt, completedAt sql.NullTime
		err := rows.Scan(
			&rec.Name,
			&rec.Status,
			&rec.InstanceType,
			&rec.InstanceCount,
			&rec.OutputLocation,
			&artifactURI,
			&failureReason,
			&rec.SpecYAML,
			&rec.CreatedAt,
			&startedAt,
			&completedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if artifactURI.Valid {
			rec.ArtifactLocation = artifactURI.String
		}
		if failureReason.Valid {
			rec.FailureReason = failureReason.String
		}
		if startedAt.Valid {
			rec.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			rec.CompletedAt = &completedAt.Time
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// ListActiveJobs returns jobs that have not reached a terminal state.
func (r *JobRepository) ListActiveJobs() ([]*JobRecord, error) {
	query := `
		SELECT name, status FROM training_jobs
		WHERE status IN ($1, $2)
		ORDER BY created_at
	`
	rows, err := r.db.Query(query, models.JobStatusPending, models.JobStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(&rec.Name, &rec.Status); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// UpdateJobStatus updates a job's status atomically with event logging.
func (r *JobRepository) UpdateJobStatus(name string, from, to models.JobStatus, artifactURI, failureReason, reason string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE training_jobs
		SET status = $1, artifact_uri = COALESCE($2, artifact_uri),
			failure_reason = COALESCE($3, failure_reason),
			completed_at = CASE WHEN $4 THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE name = $5
	`
	_, err = tx.Exec(query, to, nullString(artifactURI), nullString(failureReason), to.IsTerminal(), name)
	if err != nil {
		return err
	}

	if err := r.createEvent(tx, name, &from, to, reason); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordTransition implements the orchestrator's Recorder over the jobs
// table. Transitions for jobs not yet persisted are logged and dropped;
// the status sync monitor reconciles them on its next pass.
func (r *JobRepository) RecordTransition(job *models.TrainingJob, from models.JobStatus, reason string) {
	err := r.UpdateJobStatus(job.Name, from, job.Status, job.ArtifactLocation, job.FailureReason, reason)
	if err != nil {
		log.Printf("Failed to record transition for job %s: %v", job.Name, err)
	}
}

func (r *JobRepository) createEvent(tx *sql.Tx, name string, from *models.JobStatus, to models.JobStatus, reason string) error {
	query := `INSERT INTO job_events (job_name, from_status, to_status, reason) VALUES ($1, $2, $3, $4)`

	var fromStr *string
	if from != nil {
		s := string(*from)
		fromStr = &s
	}

	var err error
	if tx != nil {
		_, err = tx.Exec(query, name, fromStr, to, reason)
	} else {
		_, err = r.db.Exec(query, name, fromStr, to, reason)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
