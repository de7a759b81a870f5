package models

import "time"

// JobEvent records one lifecycle transition of a training job
type JobEvent struct {
	ID         int64
	JobName    string
	FromStatus *JobStatus
	ToStatus   JobStatus
	Reason     string
	CreatedAt  time.Time
}

// ArtifactType represents the type of a recorded artifact
type ArtifactType string

const (
	ArtifactTypeModel   ArtifactType = "model"
	ArtifactTypeDataset ArtifactType = "dataset"
)

// JobArtifact records an object-store artifact attached to a job
type JobArtifact struct {
	ID        int64
	JobName   string
	Type      ArtifactType
	URI       string
	CreatedAt time.Time
}
