package models

import "time"

// Endpoint is a provisioned hosting instance serving a trained artifact.
// Owned by the session that deployed it; must be torn down before the
// session ends, endpoints bill for every hour they stay up.
type Endpoint struct {
	Name             string
	Status           EndpointStatus
	ArtifactLocation string
	InstanceType     string
	InstanceCount    int
	FailureReason    string
	CreatedAt        time.Time
}

// EndpointStatus represents the current status of a hosting endpoint
type EndpointStatus string

const (
	EndpointStatusProvisioning EndpointStatus = "provisioning"
	EndpointStatusInService    EndpointStatus = "in_service"
	EndpointStatusFailed       EndpointStatus = "failed"
	EndpointStatusDeleting     EndpointStatus = "deleting"
	EndpointStatusDeleted      EndpointStatus = "deleted"
)
