package monitoring

import (
	"context"
	"log"
	"time"

	"training-orchestrator/core/models"
	"training-orchestrator/core/orchestrator"
	"training-orchestrator/core/repository"
)

// JobLister lists jobs that still need watching.
type JobLister interface {
	ListActiveJobs() ([]*repository.JobRecord, error)
}

// StatusUpdater persists observed transitions.
type StatusUpdater interface {
	UpdateJobStatus(name string, from, to models.JobStatus, artifactURI, failureReason, reason string) error
}

// ArtifactRecorder persists the model artifact of a succeeded job.
type ArtifactRecorder interface {
	RecordModelArtifact(job *models.TrainingJob) error
}

// StatusSync keeps persisted job records in step with the remote training
// service so the REST surface answers from fresh state.
type StatusSync struct {
	lister    JobLister
	updater   StatusUpdater
	client    orchestrator.TrainingClient
	artifacts ArtifactRecorder
	interval  time.Duration
}

// NewStatusSync creates a new status sync monitor. artifacts may be nil.
func NewStatusSync(lister JobLister, updater StatusUpdater, client orchestrator.TrainingClient, artifacts ArtifactRecorder, interval time.Duration) *StatusSync {
	return &StatusSync{
		lister:    lister,
		updater:   updater,
		client:    client,
		artifacts: artifacts,
		interval:  interval,
	}
}

// Start runs the sync loop until ctx is cancelled.
func (s *StatusSync) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce polls every active job once and persists status changes.
func (s *StatusSync) SyncOnce(ctx context.Context) {
	jobs, err := s.lister.ListActiveJobs()
	if err != nil {
		log.Printf("Failed to list active jobs: %v", err)
		return
	}

	for _, job := range jobs {
		s.syncJob(ctx, job)
	}
}

func (s *StatusSync) syncJob(ctx context.Context, job *repository.JobRecord) {
	describeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	desc, err := s.client.DescribeTrainingJob(describeCtx, job.Name)
	if err != nil {
		log.Printf("Failed to get status for job %s: %v", job.Name, err)
		return
	}

	newStatus := localStatus(desc.Status, job.Status)
	if newStatus == job.Status {
		return
	}

	log.Printf("Training job %s status changed: %s -> %s", job.Name, job.Status, newStatus)
	if err := s.updater.UpdateJobStatus(job.Name, job.Status, newStatus, desc.ArtifactLocation, desc.FailureReason, "status sync"); err != nil {
		log.Printf("Failed to update job status: %v", err)
		return
	}

	if newStatus == models.JobStatusSucceeded && desc.ArtifactLocation != "" && s.artifacts != nil {
		err := s.artifacts.RecordModelArtifact(&models.TrainingJob{
			Name:             job.Name,
			Status:           newStatus,
			ArtifactLocation: desc.ArtifactLocation,
		})
		if err != nil {
			log.Printf("Failed to record model artifact for job %s: %v", job.Name, err)
		}
	}
}

// localStatus maps a remote status to the persisted status. Forward-only:
// a job that already reached in_progress never reverts to pending.
func localStatus(remote orchestrator.RemoteStatus, current models.JobStatus) models.JobStatus {
	switch remote {
	case orchestrator.RemotePending, orchestrator.RemoteStarting:
		if current == models.JobStatusInProgress {
			return current
		}
		return models.JobStatusPending
	case orchestrator.RemoteRunning:
		return models.JobStatusInProgress
	case orchestrator.RemoteStopping:
		// Winding down; hold the current status until the stop is confirmed.
		return current
	case orchestrator.RemoteCompleted:
		return models.JobStatusSucceeded
	case orchestrator.RemoteFailed:
		return models.JobStatusFailed
	case orchestrator.RemoteStopped:
		return models.JobStatusStopped
	default:
		return current
	}
}
