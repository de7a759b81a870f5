package storage

import (
	"context"
	"fmt"

	"training-orchestrator/core/models"
	"training-orchestrator/core/repository"
)

// ArtifactStore abstracts the remote object store datasets and model
// artifacts live in. Keys are hierarchical path strings; uploads
// overwrite at the same key.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, body []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	URIFor(key string) string
}

// Manager couples the object store with artifact records so the REST
// surface can answer where a job's inputs and outputs ended up.
type Manager struct {
	store        ArtifactStore
	artifactRepo *repository.ArtifactRepository
}

// NewManager creates a new artifact manager. artifactRepo may be nil when
// running without a database.
func NewManager(store ArtifactStore, artifactRepo *repository.ArtifactRepository) *Manager {
	return &Manager{
		store:        store,
		artifactRepo: artifactRepo,
	}
}

// UploadDataset uploads one dataset shard and records it against the job.
// Returns the store URI for use as a data channel location.
func (m *Manager) UploadDataset(ctx context.Context, jobName, key string, body []byte) (string, error) {
	if err := m.store.Upload(ctx, key, body); err != nil {
		return "", fmt.Errorf("failed to upload dataset shard %s: %w", key, err)
	}
	uri := m.store.URIFor(key)
	if err := m.record(jobName, models.ArtifactTypeDataset, uri); err != nil {
		return "", err
	}
	return uri, nil
}

// RecordModelArtifact records the trained artifact of a succeeded job.
func (m *Manager) RecordModelArtifact(job *models.TrainingJob) error {
	if job.Status != models.JobStatusSucceeded {
		return &models.PreconditionError{Op: "record model artifact", Want: string(models.JobStatusSucceeded), Got: string(job.Status)}
	}
	return m.record(job.Name, models.ArtifactTypeModel, job.ArtifactLocation)
}

// ListModelArtifacts lists recorded model artifacts for a job.
func (m *Manager) ListModelArtifacts(jobName string) ([]models.JobArtifact, error) {
	if m.artifactRepo == nil {
		return nil, nil
	}
	modelType := models.ArtifactTypeModel
	return m.artifactRepo.GetJobArtifacts(jobName, &modelType)
}

func (m *Manager) record(jobName string, artifactType models.ArtifactType, uri string) error {
	if m.artifactRepo == nil {
		return nil
	}
	return m.artifactRepo.CreateArtifact(jobName, artifactType, uri)
}
