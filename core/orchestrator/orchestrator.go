package orchestrator

import (
	"context"
	"log"
	"time"

	"training-orchestrator/core/models"
)

// PollPolicy controls the status polling discipline. The ceilings and
// intervals are configuration, not contract; DefaultPollPolicy gives the
// defaults a workflow normally runs with.
type PollPolicy struct {
	MinPollInterval time.Duration // floor applied to caller-supplied intervals
	BackoffBase     time.Duration // first retry delay for transient errors
	BackoffFactor   int
	MaxRetries      int           // retry ceiling per poll tick
	StopTimeout     time.Duration // budget for the best-effort stop on cancellation
}

// DefaultPollPolicy returns the default polling policy
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MinPollInterval: 5 * time.Second,
		BackoffBase:     2 * time.Second,
		BackoffFactor:   2,
		MaxRetries:      4,
		StopTimeout:     15 * time.Second,
	}
}

// Recorder receives job lifecycle transitions, typically to persist them.
// A nil Recorder is valid.
type Recorder interface {
	RecordTransition(job *models.TrainingJob, from models.JobStatus, reason string)
}

// Orchestrator submits training jobs to the remote service and replicates
// their remote lifecycle into local TrainingJob state. It holds no state of
// its own; the remote service is the source of truth.
type Orchestrator struct {
	client   TrainingClient
	policy   PollPolicy
	recorder Recorder
}

// NewOrchestrator creates a new orchestrator. recorder may be nil.
func NewOrchestrator(client TrainingClient, policy PollPolicy, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		client:   client,
		policy:   policy,
		recorder: recorder,
	}
}

// Submit creates the remote training job. The returned job is InProgress
// once the service acknowledges the request; a rejection is fatal and
// surfaced as SubmissionError.
func (o *Orchestrator) Submit(ctx context.Context, spec *models.TrainingJobSpec) (*models.TrainingJob, error) {
	now := time.Now()
	job := &models.TrainingJob{
		Name:      spec.JobName,
		Spec:      spec,
		Status:    models.JobStatusPending,
		CreatedAt: now,
	}

	if err := o.client.CreateTrainingJob(ctx, spec); err != nil {
		return nil, &models.SubmissionError{JobName: spec.JobName, Err: err}
	}

	started := time.Now()
	job.StartedAt = &started
	o.transition(job, models.JobStatusInProgress, "service accepted job")
	return job, nil
}

// AwaitCompletion polls the remote service until the job reaches a terminal
// state or timeout elapses. On timeout the job keeps its last observed
// non-terminal status and a TimeoutError is returned; callers must not read
// that as failure. Cancelling ctx triggers a best-effort remote stop and a
// CancelledError.
func (o *Orchestrator) AwaitCompletion(ctx context.Context, job *models.TrainingJob, pollInterval, timeout time.Duration) (*models.TrainingJob, error) {
	if job.Status.IsTerminal() {
		return job, nil
	}
	if pollInterval < o.policy.MinPollInterval {
		pollInterval = o.policy.MinPollInterval
	}
	deadline := time.Now().Add(timeout)

	for {
		desc, err := o.describeWithRetry(ctx, job.Name)
		if err != nil {
			if ctx.Err() != nil {
				return job, o.stopOnCancel(job)
			}
			// Retry budget exhausted; the job keeps its last-known status.
			return job, err
		}

		o.apply(job, desc)
		if job.Status.IsTerminal() {
			return job, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return job, &models.TimeoutError{
				Name:       job.Name,
				LastStatus: string(job.Status),
				Waited:     timeout,
			}
		}

		// Never sleep past the deadline; the last wait shrinks to fit.
		wait := pollInterval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return job, o.stopOnCancel(job)
		case <-timer.C:
		}
	}
}

// Stop requests a remote stop for the job. The Stopped transition is
// observed through subsequent polling, not assumed here.
func (o *Orchestrator) Stop(ctx context.Context, job *models.TrainingJob) error {
	if job.Status.IsTerminal() {
		return &models.PreconditionError{Op: "stop", Want: "non-terminal", Got: string(job.Status)}
	}
	if err := o.client.StopTrainingJob(ctx, job.Name); err != nil {
		return err
	}
	return nil
}

// describeWithRetry queries job status, retrying transient errors with
// bounded exponential backoff.
func (o *Orchestrator) describeWithRetry(ctx context.Context, jobName string) (*JobDescription, error) {
	var lastErr error
	delay := o.policy.BackoffBase
	for attempt := 0; attempt <= o.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay *= time.Duration(o.policy.BackoffFactor)
		}

		desc, err := o.client.DescribeTrainingJob(ctx, jobName)
		if err == nil {
			return desc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, &models.PollingError{JobName: jobName, Attempts: o.policy.MaxRetries + 1, Err: lastErr}
}

// apply maps a remote status snapshot onto the local state machine.
// Transitions are forward-only and terminal states are never left.
func (o *Orchestrator) apply(job *models.TrainingJob, desc *JobDescription) {
	if job.Status.IsTerminal() {
		return
	}

	switch desc.Status {
	case RemotePending, RemoteStarting:
		if statusRank(job.Status) < statusRank(models.JobStatusPending) {
			o.transition(job, models.JobStatusPending, "job queued")
		}
	case RemoteRunning:
		if statusRank(job.Status) < statusRank(models.JobStatusInProgress) {
			o.transition(job, models.JobStatusInProgress, "job running")
		}
	case RemoteCompleted:
		job.ArtifactLocation = desc.ArtifactLocation
		o.complete(job, models.JobStatusSucceeded, "job completed")
	case RemoteFailed:
		job.FailureReason = desc.FailureReason
		o.complete(job, models.JobStatusFailed, desc.FailureReason)
	case RemoteStopped:
		o.complete(job, models.JobStatusStopped, "job stopped")
	case RemoteStopping:
		// Still winding down; keep the current status until confirmed.
	}
}

func (o *Orchestrator) complete(job *models.TrainingJob, to models.JobStatus, reason string) {
	now := time.Now()
	job.CompletedAt = &now
	o.transition(job, to, reason)
}

// stopOnCancel issues a best-effort remote stop under a fresh context and
// reports whether it was acknowledged.
func (o *Orchestrator) stopOnCancel(job *models.TrainingJob) error {
	stopCtx, cancel := context.WithTimeout(context.Background(), o.policy.StopTimeout)
	defer cancel()

	acked := false
	if err := o.client.StopTrainingJob(stopCtx, job.Name); err != nil {
		log.Printf("Stop request for cancelled job %s not acknowledged: %v", job.Name, err)
	} else {
		acked = true
		if !job.Status.IsTerminal() {
			o.complete(job, models.JobStatusStopped, "stopped on cancellation")
		}
	}
	return &models.CancelledError{JobName: job.Name, StopAcknowledged: acked}
}

func (o *Orchestrator) transition(job *models.TrainingJob, to models.JobStatus, reason string) {
	from := job.Status
	if from == to {
		return
	}
	job.Status = to
	log.Printf("Training job %s status changed: %s -> %s", job.Name, from, to)
	if o.recorder != nil {
		o.recorder.RecordTransition(job, from, reason)
	}
}

func statusRank(s models.JobStatus) int {
	switch s {
	case models.JobStatusPending:
		return 0
	case models.JobStatusInProgress:
		return 1
	default:
		return 2
	}
}
