package repository

import (
	"database/sql"

	"training-orchestrator/core/models"
)

// EventRepository handles database operations for job lifecycle events
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetJobEvents retrieves a job's lifecycle events, oldest first.
func (r *EventRepository) GetJobEvents(jobName string) ([]models.JobEvent, error) {
	query := `
		SELECT id, job_name, from_status, to_status, reason, created_at
		FROM job_events
		WHERE job_name = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(query, jobName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.JobEvent
	for rows.Next() {
		var event models.JobEvent
		var fromStatus sql.NullString
		err := rows.Scan(
			&event.ID,
			&event.JobName,
			&fromStatus,
			&event.ToStatus,
			&event.Reason,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if fromStatus.Valid {
			from := models.JobStatus(fromStatus.String)
			event.FromStatus = &from
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
