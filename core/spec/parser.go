package spec

import (
	"bytes"
	"fmt"
	"time"

	"training-orchestrator/core/models"

	"gopkg.in/yaml.v3"
)

// JobSpecFile is the YAML form of a training job spec, accepted by the
// REST surface and the workflow CLI.
type JobSpecFile struct {
	Job JobSpecJob `yaml:"job"`
}

// JobSpecJob represents the job section of the spec
type JobSpecJob struct {
	Name            string                    `yaml:"name"`
	Resources       JobSpecResources          `yaml:"resources"`
	Hyperparameters JobSpecHyperparameters    `yaml:"hyperparameters"`
	Channels        map[string]JobSpecChannel `yaml:"channels"`
}

// JobSpecResources represents resource requirements
type JobSpecResources struct {
	InstanceType  string `yaml:"instance_type"`
	InstanceCount int    `yaml:"instance_count"`
	VolumeSizeGB  int    `yaml:"volume_size_gb"`
	MaxRuntime    string `yaml:"max_runtime,omitempty"` // e.g. "6h"
}

// JobSpecHyperparameters represents the algorithm hyperparameters
type JobSpecHyperparameters struct {
	NumLayers          int     `yaml:"num_layers"`
	UsePretrainedModel bool    `yaml:"use_pretrained_model"`
	ImageShape         []int   `yaml:"image_shape"`
	NumClasses         int     `yaml:"num_classes"`
	NumTrainingSamples int     `yaml:"num_training_samples"`
	MiniBatchSize      int     `yaml:"mini_batch_size"`
	Epochs             int     `yaml:"epochs"`
	LearningRate       float64 `yaml:"learning_rate"`
	PrecisionDtype     string  `yaml:"precision_dtype"`
}

// JobSpecChannel represents one data channel
type JobSpecChannel struct {
	Location    string `yaml:"location"`
	ContentType string `yaml:"content_type"`
}

// ParseJobSpec parses the YAML form and runs it through the builder's
// validation. Unknown YAML keys are rejected rather than forwarded.
func (b *Builder) ParseJobSpec(specYAML []byte) (*models.TrainingJobSpec, error) {
	var file JobSpecFile
	dec := yaml.NewDecoder(bytes.NewReader(specYAML))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, &models.ValidationError{Field: "spec", Reason: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	res := Resources{
		InstanceType:  file.Job.Resources.InstanceType,
		InstanceCount: file.Job.Resources.InstanceCount,
		VolumeSizeGB:  file.Job.Resources.VolumeSizeGB,
	}
	if file.Job.Resources.MaxRuntime != "" {
		d, err := time.ParseDuration(file.Job.Resources.MaxRuntime)
		if err != nil {
			return nil, &models.ValidationError{Field: "max_runtime", Reason: fmt.Sprintf("invalid duration %q", file.Job.Resources.MaxRuntime)}
		}
		res.MaxRuntime = d
	}

	if len(file.Job.Hyperparameters.ImageShape) != 3 {
		return nil, &models.ValidationError{Field: "image_shape", Reason: fmt.Sprintf("must be a (channels, height, width) triple, got %d values", len(file.Job.Hyperparameters.ImageShape))}
	}
	hp := models.Hyperparameters{
		NumLayers:          file.Job.Hyperparameters.NumLayers,
		UsePretrainedModel: file.Job.Hyperparameters.UsePretrainedModel,
		NumClasses:         file.Job.Hyperparameters.NumClasses,
		NumTrainingSamples: file.Job.Hyperparameters.NumTrainingSamples,
		MiniBatchSize:      file.Job.Hyperparameters.MiniBatchSize,
		Epochs:             file.Job.Hyperparameters.Epochs,
		LearningRate:       file.Job.Hyperparameters.LearningRate,
		PrecisionDtype:     file.Job.Hyperparameters.PrecisionDtype,
	}
	copy(hp.ImageShape[:], file.Job.Hyperparameters.ImageShape)

	channels := make(map[string]models.DataChannel, len(file.Job.Channels))
	for name, ch := range file.Job.Channels {
		channels[name] = models.DataChannel{
			Location:    ch.Location,
			ContentType: ch.ContentType,
		}
	}

	return b.Build(file.Job.Name, res, hp, channels)
}
