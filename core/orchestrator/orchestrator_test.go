package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"training-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrainingClient struct {
	mu sync.Mutex

	createErr error
	sequence  []JobDescription
	idx       int
	failures  int // transient describe errors before answering
	stopErr   error
	stopCalls int
}

func (f *fakeTrainingClient) CreateTrainingJob(ctx context.Context, spec *models.TrainingJobSpec) error {
	return f.createErr
}

func (f *fakeTrainingClient) DescribeTrainingJob(ctx context.Context, jobName string) (*JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	desc := f.sequence[f.idx]
	if f.idx < len(f.sequence)-1 {
		f.idx++
	}
	return &desc, nil
}

func (f *fakeTrainingClient) StopTrainingJob(ctx context.Context, jobName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func testPolicy() PollPolicy {
	return PollPolicy{
		MinPollInterval: time.Millisecond,
		BackoffBase:     time.Millisecond,
		BackoffFactor:   2,
		MaxRetries:      4,
		StopTimeout:     time.Second,
	}
}

func testSpec() *models.TrainingJobSpec {
	return &models.TrainingJobSpec{
		JobName:       "caltech-256-test",
		InstanceType:  "ml.p2.xlarge",
		InstanceCount: 1,
	}
}

func TestSubmitAccepted(t *testing.T) {
	orch := NewOrchestrator(&fakeTrainingClient{}, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, job.Status)
	assert.NotNil(t, job.StartedAt)
	assert.Equal(t, "caltech-256-test", job.Name)
}

func TestSubmitRejected(t *testing.T) {
	client := &fakeTrainingClient{createErr: errors.New("quota exceeded")}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	assert.Nil(t, job)

	var serr *models.SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "caltech-256-test", serr.JobName)
}

func TestAwaitCompletionSucceeds(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{
			{Status: RemotePending},
			{Status: RemoteRunning},
			{Status: RemoteRunning},
			{Status: RemoteCompleted, ArtifactLocation: "s3://bucket/out/model.tar"},
		},
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	job, err = orch.AwaitCompletion(context.Background(), job, 2*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, job.Status)
	assert.Equal(t, "s3://bucket/out/model.tar", job.ArtifactLocation)
	assert.NotNil(t, job.CompletedAt)
}

func TestAwaitCompletionFailure(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{
			{Status: RemoteRunning},
			{Status: RemoteFailed, FailureReason: "ClientError: channel validation empty"},
		},
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	job, err = orch.AwaitCompletion(context.Background(), job, 2*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "ClientError: channel validation empty", job.FailureReason)
	assert.Empty(t, job.ArtifactLocation)
}

func TestAwaitCompletionTimeout(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{
			{Status: RemoteRunning},
		},
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	job, err = orch.AwaitCompletion(context.Background(), job, 10*time.Millisecond, 25*time.Millisecond)

	var terr *models.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, string(models.JobStatusInProgress), terr.LastStatus)
	// Giving up waiting is not failure; the job keeps its last observed state.
	assert.Equal(t, models.JobStatusInProgress, job.Status)
}

func TestAwaitCompletionDoesNotOvershootDeadline(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{{Status: RemoteRunning}},
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	start := time.Now()
	_, err = orch.AwaitCompletion(context.Background(), job, 200*time.Millisecond, 50*time.Millisecond)
	elapsed := time.Since(start)

	var terr *models.TimeoutError
	require.ErrorAs(t, err, &terr)
	// A poll interval far above the deadline must not stretch the wait.
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestTransientPollErrorsRetried(t *testing.T) {
	client := &fakeTrainingClient{
		failures: 2,
		sequence: []JobDescription{
			{Status: RemoteCompleted, ArtifactLocation: "s3://bucket/out/model.tar"},
		},
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	job, err = orch.AwaitCompletion(context.Background(), job, 2*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, job.Status)
}

func TestPollingErrorAfterRetryBudget(t *testing.T) {
	client := &fakeTrainingClient{
		failures: 100,
		sequence: []JobDescription{{Status: RemoteRunning}},
	}
	policy := testPolicy()
	policy.MaxRetries = 2
	orch := NewOrchestrator(client, policy, nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	job, err = orch.AwaitCompletion(context.Background(), job, 2*time.Millisecond, time.Second)

	var perr *models.PollingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Attempts)
	// Last-known status is preserved.
	assert.Equal(t, models.JobStatusInProgress, job.Status)
}

func TestCancellationStopsJob(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{{Status: RemoteRunning}},
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	job, err = orch.AwaitCompletion(ctx, job, 5*time.Millisecond, time.Minute)

	var cerr *models.CancelledError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.StopAcknowledged)
	assert.Equal(t, models.JobStatusStopped, job.Status)
	assert.Equal(t, 1, client.stopCalls)
}

func TestCancellationStopNotAcknowledged(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{{Status: RemoteRunning}},
		stopErr:  errors.New("throttled"),
	}
	orch := NewOrchestrator(client, testPolicy(), nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	job, err = orch.AwaitCompletion(ctx, job, 5*time.Millisecond, time.Minute)

	var cerr *models.CancelledError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.StopAcknowledged)
	// Last observed state stays when the stop is not confirmed.
	assert.Equal(t, models.JobStatusInProgress, job.Status)
}

func TestStopRequiresNonTerminalJob(t *testing.T) {
	orch := NewOrchestrator(&fakeTrainingClient{}, testPolicy(), nil)
	job := &models.TrainingJob{Name: "done", Status: models.JobStatusSucceeded}

	err := orch.Stop(context.Background(), job)

	var perr *models.PreconditionError
	require.ErrorAs(t, err, &perr)
}

// Feeding arbitrary remote status sequences must only ever move a job
// forward through pending -> in_progress -> terminal, and never out of a
// terminal state.
func TestStatusProgressionIsMonotonic(t *testing.T) {
	remotes := []RemoteStatus{
		RemotePending, RemoteStarting, RemoteRunning,
		RemoteCompleted, RemoteFailed, RemoteStopping, RemoteStopped,
	}
	rng := rand.New(rand.NewSource(42))
	orch := NewOrchestrator(&fakeTrainingClient{}, testPolicy(), nil)

	for trial := 0; trial < 200; trial++ {
		job := &models.TrainingJob{Name: "prop", Status: models.JobStatusPending}
		lastRank := statusRank(job.Status)
		var terminal models.JobStatus

		for step := 0; step < 20; step++ {
			desc := &JobDescription{Status: remotes[rng.Intn(len(remotes))]}
			if desc.Status == RemoteCompleted {
				desc.ArtifactLocation = "s3://bucket/out/model.tar"
			}
			orch.apply(job, desc)

			rank := statusRank(job.Status)
			assert.GreaterOrEqual(t, rank, lastRank, "trial %d step %d regressed", trial, step)
			lastRank = rank

			if terminal != "" {
				assert.Equal(t, terminal, job.Status, "trial %d left terminal state", trial)
			} else if job.Status.IsTerminal() {
				terminal = job.Status
			}
		}
	}
}

func TestRemotePendingDoesNotRegressRunningJob(t *testing.T) {
	orch := NewOrchestrator(&fakeTrainingClient{}, testPolicy(), nil)
	job := &models.TrainingJob{Name: "j", Status: models.JobStatusInProgress}

	orch.apply(job, &JobDescription{Status: RemotePending})

	assert.Equal(t, models.JobStatusInProgress, job.Status)
}

func TestAwaitCompletionClampsPollInterval(t *testing.T) {
	client := &fakeTrainingClient{
		sequence: []JobDescription{
			{Status: RemoteRunning},
			{Status: RemoteCompleted},
		},
	}
	policy := testPolicy()
	policy.MinPollInterval = 20 * time.Millisecond
	orch := NewOrchestrator(client, policy, nil)

	job, err := orch.Submit(context.Background(), testSpec())
	require.NoError(t, err)

	start := time.Now()
	_, err = orch.AwaitCompletion(context.Background(), job, 0, time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
