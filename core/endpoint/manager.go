package endpoint

import (
	"context"
	"fmt"
	"log"
	"time"

	"training-orchestrator/core/models"
	"training-orchestrator/core/orchestrator"
)

// EndpointDescription is a point-in-time snapshot of a remote endpoint.
type EndpointDescription struct {
	Status        models.EndpointStatus
	FailureReason string
}

// HostingClient is the narrow surface of the remote hosting service the
// manager depends on.
type HostingClient interface {
	CreateEndpoint(ctx context.Context, ep *models.Endpoint, imageReference, roleARN string) error
	DescribeEndpoint(ctx context.Context, name string) (*EndpointDescription, error)
	InvokeEndpoint(ctx context.Context, name string, payload []byte, contentType string) ([]byte, error)
	DeleteEndpoint(ctx context.Context, name string) error
}

// Manager provisions hosting endpoints from trained artifacts and owns
// their teardown. Endpoints bill while they are up; callers must arrange
// Teardown on every exit path.
type Manager struct {
	client HostingClient
	policy orchestrator.PollPolicy
}

// NewManager creates a new endpoint manager
func NewManager(client HostingClient, policy orchestrator.PollPolicy) *Manager {
	return &Manager{client: client, policy: policy}
}

// Deploy provisions an endpoint serving the job's artifact and waits until
// it is in service. The job must have succeeded.
func (m *Manager) Deploy(ctx context.Context, job *models.TrainingJob, instanceType string, instanceCount int) (*models.Endpoint, error) {
	if job.Status != models.JobStatusSucceeded {
		return nil, &models.PreconditionError{Op: "deploy", Want: string(models.JobStatusSucceeded), Got: string(job.Status)}
	}
	if instanceCount < 1 {
		return nil, &models.ValidationError{Field: "instance_count", Reason: fmt.Sprintf("must be >= 1, got %d", instanceCount)}
	}

	ep := &models.Endpoint{
		Name:             job.Name + "-ep",
		Status:           models.EndpointStatusProvisioning,
		ArtifactLocation: job.ArtifactLocation,
		InstanceType:     instanceType,
		InstanceCount:    instanceCount,
		CreatedAt:        time.Now(),
	}

	if err := m.client.CreateEndpoint(ctx, ep, job.Spec.ImageReference, job.Spec.RoleARN); err != nil {
		return nil, fmt.Errorf("failed to create endpoint %s: %w", ep.Name, err)
	}
	log.Printf("Endpoint %s provisioning", ep.Name)

	if err := m.awaitInService(ctx, ep); err != nil {
		return ep, err
	}
	return ep, nil
}

// Predict performs one synchronous inference round trip. Not retried here:
// invocations are not assumed idempotent downstream, so retry policy
// belongs to the caller.
func (m *Manager) Predict(ctx context.Context, ep *models.Endpoint, payload []byte, contentType string) ([]byte, error) {
	if ep.Status != models.EndpointStatusInService {
		return nil, &models.PreconditionError{Op: "predict", Want: string(models.EndpointStatusInService), Got: string(ep.Status)}
	}
	resp, err := m.client.InvokeEndpoint(ctx, ep.Name, payload, contentType)
	if err != nil {
		return nil, fmt.Errorf("invoke against endpoint %s failed: %w", ep.Name, err)
	}
	return resp, nil
}

// Teardown deletes the endpoint and waits for the deletion to be
// confirmed. Idempotent: tearing down an already deleted endpoint is a
// no-op.
func (m *Manager) Teardown(ctx context.Context, ep *models.Endpoint) error {
	if ep.Status == models.EndpointStatusDeleted {
		return nil
	}

	if err := m.client.DeleteEndpoint(ctx, ep.Name); err != nil {
		return fmt.Errorf("failed to delete endpoint %s: %w", ep.Name, err)
	}
	ep.Status = models.EndpointStatusDeleting
	log.Printf("Endpoint %s deleting", ep.Name)

	for {
		desc, err := m.describeWithRetry(ctx, ep.Name)
		if err != nil {
			return err
		}
		if desc == nil || desc.Status == models.EndpointStatusDeleted {
			ep.Status = models.EndpointStatusDeleted
			log.Printf("Endpoint %s deleted", ep.Name)
			return nil
		}
		if err := m.sleep(ctx); err != nil {
			return err
		}
	}
}

// awaitInService polls until the endpoint is serviceable or failed.
func (m *Manager) awaitInService(ctx context.Context, ep *models.Endpoint) error {
	for {
		desc, err := m.describeWithRetry(ctx, ep.Name)
		if err != nil {
			return err
		}
		if desc != nil {
			switch desc.Status {
			case models.EndpointStatusInService:
				ep.Status = models.EndpointStatusInService
				log.Printf("Endpoint %s in service", ep.Name)
				return nil
			case models.EndpointStatusFailed:
				ep.Status = models.EndpointStatusFailed
				ep.FailureReason = desc.FailureReason
				return fmt.Errorf("endpoint %s failed to provision: %s", ep.Name, desc.FailureReason)
			}
		}
		if err := m.sleep(ctx); err != nil {
			return err
		}
	}
}

// describeWithRetry queries endpoint status with the same bounded backoff
// discipline the job orchestrator uses. A nil description means the
// endpoint no longer exists.
func (m *Manager) describeWithRetry(ctx context.Context, name string) (*EndpointDescription, error) {
	var lastErr error
	delay := m.policy.BackoffBase
	for attempt := 0; attempt <= m.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay *= time.Duration(m.policy.BackoffFactor)
		}

		desc, err := m.client.DescribeEndpoint(ctx, name)
		if err == nil {
			return desc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, &models.PollingError{JobName: name, Attempts: m.policy.MaxRetries + 1, Err: lastErr}
}

func (m *Manager) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.policy.MinPollInterval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
