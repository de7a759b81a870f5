package spec

import (
	"fmt"
	"strings"
	"time"

	"training-orchestrator/config"
	"training-orchestrator/core/algorithm"
	"training-orchestrator/core/models"

	"github.com/google/uuid"
)

// Resources specifies the compute a training job runs on
type Resources struct {
	InstanceType  string
	InstanceCount int
	VolumeSizeGB  int
	MaxRuntime    time.Duration
}

// Builder assembles validated training job specs for one session.
type Builder struct {
	session        config.SessionContext
	imageReference string
}

// NewBuilder creates a builder bound to a session and the algorithm image
// for the session's region.
func NewBuilder(session config.SessionContext) (*Builder, error) {
	image, err := algorithm.ImageReference(session.Region)
	if err != nil {
		return nil, err
	}
	return &Builder{session: session, imageReference: image}, nil
}

// Build validates the inputs and assembles an immutable TrainingJobSpec.
// Pure: no remote calls, only locally verifiable structural constraints.
// The declared sample count is deliberately not checked against the channel
// contents; the training service owns that comparison.
func (b *Builder) Build(jobName string, res Resources, hp models.Hyperparameters, channels map[string]models.DataChannel) (*models.TrainingJobSpec, error) {
	if err := validateResources(res); err != nil {
		return nil, err
	}
	if err := validateHyperparameters(hp); err != nil {
		return nil, err
	}
	if err := validateChannels(channels); err != nil {
		return nil, err
	}

	if jobName == "" {
		jobName = fmt.Sprintf("image-classification-%s", uuid.New().String()[:8])
	}
	if res.MaxRuntime == 0 {
		res.MaxRuntime = 6 * time.Hour
	}

	copied := make(map[string]models.DataChannel, len(channels))
	for name, ch := range channels {
		copied[name] = ch
	}

	return &models.TrainingJobSpec{
		JobName:         jobName,
		ImageReference:  b.imageReference,
		RoleARN:         b.session.RoleARN,
		InstanceType:    res.InstanceType,
		InstanceCount:   res.InstanceCount,
		VolumeSizeGB:    res.VolumeSizeGB,
		MaxRuntime:      res.MaxRuntime,
		OutputLocation:  b.session.OutputLocation(),
		Hyperparameters: hp,
		DataChannels:    copied,
	}, nil
}

func validateResources(res Resources) error {
	if res.InstanceType == "" {
		return &models.ValidationError{Field: "instance_type", Reason: "must not be empty"}
	}
	if res.InstanceCount < 1 {
		return &models.ValidationError{Field: "instance_count", Reason: fmt.Sprintf("must be >= 1, got %d", res.InstanceCount)}
	}
	if res.VolumeSizeGB < 1 {
		return &models.ValidationError{Field: "volume_size_gb", Reason: fmt.Sprintf("must be >= 1, got %d", res.VolumeSizeGB)}
	}
	return nil
}

func validateHyperparameters(hp models.Hyperparameters) error {
	for i, d := range hp.ImageShape {
		if d < 1 {
			return &models.ValidationError{Field: "image_shape", Reason: fmt.Sprintf("dimension %d must be positive, got %d", i, d)}
		}
	}
	if hp.NumLayers < 1 {
		return &models.ValidationError{Field: "num_layers", Reason: fmt.Sprintf("must be >= 1, got %d", hp.NumLayers)}
	}
	if hp.NumClasses < 1 {
		return &models.ValidationError{Field: "num_classes", Reason: fmt.Sprintf("must be >= 1, got %d", hp.NumClasses)}
	}
	if hp.NumTrainingSamples < 1 {
		return &models.ValidationError{Field: "num_training_samples", Reason: fmt.Sprintf("must be >= 1, got %d", hp.NumTrainingSamples)}
	}
	if hp.MiniBatchSize < 1 {
		return &models.ValidationError{Field: "mini_batch_size", Reason: fmt.Sprintf("must be >= 1, got %d", hp.MiniBatchSize)}
	}
	if hp.Epochs < 1 {
		return &models.ValidationError{Field: "epochs", Reason: fmt.Sprintf("must be >= 1, got %d", hp.Epochs)}
	}
	if hp.LearningRate <= 0 {
		return &models.ValidationError{Field: "learning_rate", Reason: fmt.Sprintf("must be > 0, got %g", hp.LearningRate)}
	}
	switch hp.PrecisionDtype {
	case "float32", "float16":
	default:
		return &models.ValidationError{Field: "precision_dtype", Reason: fmt.Sprintf("must be float32 or float16, got %q", hp.PrecisionDtype)}
	}
	return nil
}

func validateChannels(channels map[string]models.DataChannel) error {
	var missing []string
	for _, name := range algorithm.RequiredChannels {
		if _, ok := channels[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &models.ValidationError{Field: "data_channels", Reason: fmt.Sprintf("missing required channels: %s", strings.Join(missing, ", "))}
	}
	for name, ch := range channels {
		if ch.Location == "" {
			return &models.ValidationError{Field: "data_channels", Reason: fmt.Sprintf("channel %q has no location", name)}
		}
		if !strings.HasPrefix(ch.Location, "s3://") {
			return &models.ValidationError{Field: "data_channels", Reason: fmt.Sprintf("channel %q location %q is not an s3:// URI", name, ch.Location)}
		}
		if ch.ContentType == "" {
			return &models.ValidationError{Field: "data_channels", Reason: fmt.Sprintf("channel %q has no content type", name)}
		}
	}
	return nil
}
