package endpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"training-orchestrator/core/models"
	"training-orchestrator/core/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHostingClient struct {
	mu sync.Mutex

	createErr   error
	createCalls int

	statusSequence []models.EndpointStatus
	statusIdx      int
	deleted        bool

	invokeResponse []byte
	invokeErr      error
	invokeCalls    int

	deleteErr   error
	deleteCalls int
}

func (f *fakeHostingClient) CreateEndpoint(ctx context.Context, ep *models.Endpoint, imageReference, roleARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return f.createErr
}

func (f *fakeHostingClient) DescribeEndpoint(ctx context.Context, name string) (*EndpointDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted {
		return nil, nil
	}
	status := f.statusSequence[f.statusIdx]
	if f.statusIdx < len(f.statusSequence)-1 {
		f.statusIdx++
	}
	return &EndpointDescription{Status: status}, nil
}

func (f *fakeHostingClient) InvokeEndpoint(ctx context.Context, name string, payload []byte, contentType string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invokeCalls++
	return f.invokeResponse, f.invokeErr
}

func (f *fakeHostingClient) DeleteEndpoint(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr == nil {
		f.deleted = true
	}
	return f.deleteErr
}

func testPolicy() orchestrator.PollPolicy {
	return orchestrator.PollPolicy{
		MinPollInterval: time.Millisecond,
		BackoffBase:     time.Millisecond,
		BackoffFactor:   2,
		MaxRetries:      2,
		StopTimeout:     time.Second,
	}
}

func succeededJob() *models.TrainingJob {
	return &models.TrainingJob{
		Name:             "caltech-256-test",
		Status:           models.JobStatusSucceeded,
		ArtifactLocation: "s3://bucket/out/model.tar",
		Spec: &models.TrainingJobSpec{
			JobName:        "caltech-256-test",
			ImageReference: "811284229777.dkr.ecr.us-east-1.amazonaws.com/image-classification:1",
			RoleARN:        "arn:aws:iam::123456789012:role/training",
		},
	}
}

func TestDeployRequiresSucceededJob(t *testing.T) {
	client := &fakeHostingClient{}
	m := NewManager(client, testPolicy())

	job := succeededJob()
	job.Status = models.JobStatusInProgress

	ep, err := m.Deploy(context.Background(), job, "ml.m5.xlarge", 1)
	assert.Nil(t, ep)

	var perr *models.PreconditionError
	require.ErrorAs(t, err, &perr)
	// No provisioning request may be issued for an unfinished job.
	assert.Zero(t, client.createCalls)
}

func TestDeployWaitsForInService(t *testing.T) {
	client := &fakeHostingClient{
		statusSequence: []models.EndpointStatus{
			models.EndpointStatusProvisioning,
			models.EndpointStatusProvisioning,
			models.EndpointStatusInService,
		},
	}
	m := NewManager(client, testPolicy())

	ep, err := m.Deploy(context.Background(), succeededJob(), "ml.m5.xlarge", 1)
	require.NoError(t, err)
	assert.Equal(t, models.EndpointStatusInService, ep.Status)
	assert.Equal(t, "caltech-256-test-ep", ep.Name)
	assert.Equal(t, "s3://bucket/out/model.tar", ep.ArtifactLocation)
}

func TestDeployFailedProvisioning(t *testing.T) {
	client := &fakeHostingClient{
		statusSequence: []models.EndpointStatus{
			models.EndpointStatusProvisioning,
			models.EndpointStatusFailed,
		},
	}
	m := NewManager(client, testPolicy())

	ep, err := m.Deploy(context.Background(), succeededJob(), "ml.m5.xlarge", 1)
	require.Error(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, models.EndpointStatusFailed, ep.Status)
}

func TestPredictRequiresInService(t *testing.T) {
	client := &fakeHostingClient{}
	m := NewManager(client, testPolicy())

	ep := &models.Endpoint{Name: "ep", Status: models.EndpointStatusProvisioning}
	_, err := m.Predict(context.Background(), ep, []byte("img"), "application/x-image")

	var perr *models.PreconditionError
	require.ErrorAs(t, err, &perr)
	// The precondition check must short-circuit before any network call.
	assert.Zero(t, client.invokeCalls)
}

func TestPredictRoundTrip(t *testing.T) {
	client := &fakeHostingClient{invokeResponse: []byte(`[0.1, 0.9]`)}
	m := NewManager(client, testPolicy())

	ep := &models.Endpoint{Name: "ep", Status: models.EndpointStatusInService}
	resp, err := m.Predict(context.Background(), ep, []byte("img"), "application/x-image")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[0.1, 0.9]`), resp)
	assert.Equal(t, 1, client.invokeCalls)
}

func TestTeardownIsIdempotent(t *testing.T) {
	client := &fakeHostingClient{
		statusSequence: []models.EndpointStatus{models.EndpointStatusDeleting},
	}
	m := NewManager(client, testPolicy())

	ep := &models.Endpoint{Name: "ep", Status: models.EndpointStatusInService}
	require.NoError(t, m.Teardown(context.Background(), ep))
	assert.Equal(t, models.EndpointStatusDeleted, ep.Status)
	assert.Equal(t, 1, client.deleteCalls)

	// Second teardown is a no-op.
	require.NoError(t, m.Teardown(context.Background(), ep))
	assert.Equal(t, 1, client.deleteCalls)
}
