package aws

import (
	"context"
	"fmt"
	"sort"

	"training-orchestrator/core/models"
	"training-orchestrator/core/orchestrator"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// CreateTrainingJob submits the spec to the managed training service.
func (c *Client) CreateTrainingJob(ctx context.Context, spec *models.TrainingJobSpec) error {
	input := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(spec.JobName),
		RoleArn:         aws.String(spec.RoleARN),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(spec.ImageReference),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		HyperParameters: spec.Hyperparameters.WireMap(),
		InputDataConfig: channelConfig(spec),
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(spec.OutputLocation),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(spec.InstanceType),
			InstanceCount:  aws.Int32(int32(spec.InstanceCount)),
			VolumeSizeInGB: aws.Int32(int32(spec.VolumeSizeGB)),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(spec.MaxRuntime.Seconds())),
		},
	}

	_, err := c.sagemakerClient.CreateTrainingJob(ctx, input)
	if err != nil {
		return fmt.Errorf("CreateTrainingJob %s: %w", spec.JobName, err)
	}
	return nil
}

// DescribeTrainingJob maps the service's status pair onto the raw statuses
// the orchestrator understands.
func (c *Client) DescribeTrainingJob(ctx context.Context, jobName string) (*orchestrator.JobDescription, error) {
	out, err := c.sagemakerClient.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(jobName),
	})
	if err != nil {
		return nil, fmt.Errorf("DescribeTrainingJob %s: %w", jobName, err)
	}

	desc := &orchestrator.JobDescription{}
	switch out.TrainingJobStatus {
	case types.TrainingJobStatusInProgress:
		// The primary status stays InProgress while instances are still
		// being acquired; the secondary status tells the two apart.
		switch out.SecondaryStatus {
		case types.SecondaryStatusStarting, types.SecondaryStatusPending, types.SecondaryStatusLaunchingMlInstances:
			desc.Status = orchestrator.RemotePending
		default:
			desc.Status = orchestrator.RemoteRunning
		}
	case types.TrainingJobStatusCompleted:
		desc.Status = orchestrator.RemoteCompleted
		if out.ModelArtifacts != nil {
			desc.ArtifactLocation = aws.ToString(out.ModelArtifacts.S3ModelArtifacts)
		}
	case types.TrainingJobStatusFailed:
		desc.Status = orchestrator.RemoteFailed
		desc.FailureReason = aws.ToString(out.FailureReason)
	case types.TrainingJobStatusStopping:
		desc.Status = orchestrator.RemoteStopping
	case types.TrainingJobStatusStopped:
		desc.Status = orchestrator.RemoteStopped
	default:
		desc.Status = orchestrator.RemotePending
	}
	return desc, nil
}

// StopTrainingJob requests a remote stop.
func (c *Client) StopTrainingJob(ctx context.Context, jobName string) error {
	_, err := c.sagemakerClient.StopTrainingJob(ctx, &sagemaker.StopTrainingJobInput{
		TrainingJobName: aws.String(jobName),
	})
	if err != nil {
		return fmt.Errorf("StopTrainingJob %s: %w", jobName, err)
	}
	return nil
}

func channelConfig(spec *models.TrainingJobSpec) []types.Channel {
	names := make([]string, 0, len(spec.DataChannels))
	for name := range spec.DataChannels {
		names = append(names, name)
	}
	sort.Strings(names)

	channels := make([]types.Channel, 0, len(names))
	for _, name := range names {
		ch := spec.DataChannels[name]
		channels = append(channels, types.Channel{
			ChannelName: aws.String(name),
			ContentType: aws.String(ch.ContentType),
			DataSource: &types.DataSource{
				S3DataSource: &types.S3DataSource{
					S3DataType:             types.S3DataTypeS3Prefix,
					S3Uri:                  aws.String(ch.Location),
					S3DataDistributionType: types.S3DataDistributionFullyReplicated,
				},
			},
		})
	}
	return channels
}
