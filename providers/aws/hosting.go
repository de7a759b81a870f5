package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"training-orchestrator/core/endpoint"
	"training-orchestrator/core/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/aws/smithy-go"
)

// CreateEndpoint provisions the hosting triple for an endpoint: the model,
// its endpoint config, and the endpoint itself, all sharing the endpoint
// name.
func (c *Client) CreateEndpoint(ctx context.Context, ep *models.Endpoint, imageReference, roleARN string) error {
	_, err := c.sagemakerClient.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(ep.Name),
		ExecutionRoleArn: aws.String(roleARN),
		PrimaryContainer: &types.ContainerDefinition{
			Image:        aws.String(imageReference),
			ModelDataUrl: aws.String(ep.ArtifactLocation),
		},
	})
	if err != nil {
		return fmt.Errorf("CreateModel %s: %w", ep.Name, err)
	}

	_, err = c.sagemakerClient.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(ep.Name),
		ProductionVariants: []types.ProductionVariant{
			{
				VariantName:          aws.String("primary"),
				ModelName:            aws.String(ep.Name),
				InstanceType:         types.ProductionVariantInstanceType(ep.InstanceType),
				InitialInstanceCount: aws.Int32(int32(ep.InstanceCount)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("CreateEndpointConfig %s: %w", ep.Name, err)
	}

	_, err = c.sagemakerClient.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(ep.Name),
		EndpointConfigName: aws.String(ep.Name),
	})
	if err != nil {
		return fmt.Errorf("CreateEndpoint %s: %w", ep.Name, err)
	}
	return nil
}

// DescribeEndpoint returns the endpoint's status, or nil when the endpoint
// no longer exists.
func (c *Client) DescribeEndpoint(ctx context.Context, name string) (*endpoint.EndpointDescription, error) {
	out, err := c.sagemakerClient.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		if isEndpointNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("DescribeEndpoint %s: %w", name, err)
	}

	desc := &endpoint.EndpointDescription{
		FailureReason: aws.ToString(out.FailureReason),
	}
	switch out.EndpointStatus {
	case types.EndpointStatusInService:
		desc.Status = models.EndpointStatusInService
	case types.EndpointStatusFailed:
		desc.Status = models.EndpointStatusFailed
	case types.EndpointStatusDeleting:
		desc.Status = models.EndpointStatusDeleting
	default:
		desc.Status = models.EndpointStatusProvisioning
	}
	return desc, nil
}

// InvokeEndpoint performs one synchronous inference call.
func (c *Client) InvokeEndpoint(ctx context.Context, name string, payload []byte, contentType string) ([]byte, error) {
	out, err := c.runtimeClient.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(name),
		Body:         payload,
		ContentType:  aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("InvokeEndpoint %s: %w", name, err)
	}
	return out.Body, nil
}

// DeleteEndpoint tears down the endpoint and its config and model.
// Already-deleted resources are treated as success.
func (c *Client) DeleteEndpoint(ctx context.Context, name string) error {
	_, err := c.sagemakerClient.DeleteEndpoint(ctx, &sagemaker.DeleteEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil && !isEndpointNotFound(err) {
		return fmt.Errorf("DeleteEndpoint %s: %w", name, err)
	}

	_, err = c.sagemakerClient.DeleteEndpointConfig(ctx, &sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(name),
	})
	if err != nil && !isEndpointNotFound(err) {
		return fmt.Errorf("DeleteEndpointConfig %s: %w", name, err)
	}

	_, err = c.sagemakerClient.DeleteModel(ctx, &sagemaker.DeleteModelInput{
		ModelName: aws.String(name),
	})
	if err != nil && !isEndpointNotFound(err) {
		return fmt.Errorf("DeleteModel %s: %w", name, err)
	}
	return nil
}

// isEndpointNotFound detects the service's "Could not find ..." validation
// error; the API has no dedicated not-found type for hosting resources.
func isEndpointNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "ValidationException" && strings.Contains(apiErr.ErrorMessage(), "Could not find") {
			return true
		}
	}
	return false
}
