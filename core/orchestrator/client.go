package orchestrator

import (
	"context"

	"training-orchestrator/core/models"
)

// RemoteStatus is the raw status the training service reports.
type RemoteStatus string

const (
	RemotePending   RemoteStatus = "pending"
	RemoteStarting  RemoteStatus = "starting"
	RemoteRunning   RemoteStatus = "running"
	RemoteCompleted RemoteStatus = "completed"
	RemoteFailed    RemoteStatus = "failed"
	RemoteStopping  RemoteStatus = "stopping"
	RemoteStopped   RemoteStatus = "stopped"
)

// JobDescription is a point-in-time snapshot of a remote training job.
type JobDescription struct {
	Status           RemoteStatus
	ArtifactLocation string // set once the service reports an output path
	FailureReason    string
}

// TrainingClient is the narrow surface of the remote training service the
// orchestrator depends on.
type TrainingClient interface {
	CreateTrainingJob(ctx context.Context, spec *models.TrainingJobSpec) error
	DescribeTrainingJob(ctx context.Context, jobName string) (*JobDescription, error)
	StopTrainingJob(ctx context.Context, jobName string) error
}
