package repository

import (
	"training-orchestrator/core/models"
)

// ArtifactRepository handles database operations for job artifacts
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// CreateArtifact records an artifact URI for a job.
func (r *ArtifactRepository) CreateArtifact(jobName string, artifactType models.ArtifactType, uri string) error {
	query := `INSERT INTO job_artifacts (job_name, type, uri) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(query, jobName, artifactType, uri)
	return err
}

// GetJobArtifacts retrieves artifacts for a job, newest first.
func (r *ArtifactRepository) GetJobArtifacts(jobName string, artifactType *models.ArtifactType) ([]models.JobArtifact, error) {
	query := `
		SELECT id, job_name, type, uri, created_at
		FROM job_artifacts
		WHERE job_name = $1
	`
	args := []interface{}{jobName}
	if artifactType != nil {
		query += " AND type = $2"
		args = append(args, *artifactType)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []models.JobArtifact
	for rows.Next() {
		var artifact models.JobArtifact
		err := rows.Scan(
			&artifact.ID,
			&artifact.JobName,
			&artifact.Type,
			&artifact.URI,
			&artifact.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}
