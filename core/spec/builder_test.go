package spec

import (
	"testing"
	"time"

	"training-orchestrator/config"
	"training-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() config.SessionContext {
	return config.SessionContext{
		Region:  "us-east-1",
		RoleARN: "arn:aws:iam::123456789012:role/training",
		Bucket:  "training-data",
		Prefix:  "image-classification",
	}
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testSession())
	require.NoError(t, err)
	return b
}

func validResources() Resources {
	return Resources{
		InstanceType:  "ml.p2.xlarge",
		InstanceCount: 1,
		VolumeSizeGB:  50,
		MaxRuntime:    6 * time.Hour,
	}
}

func validHyperparameters() models.Hyperparameters {
	return models.Hyperparameters{
		NumLayers:          18,
		UsePretrainedModel: true,
		ImageShape:         [3]int{3, 224, 224},
		NumClasses:         257,
		NumTrainingSamples: 15420,
		MiniBatchSize:      128,
		Epochs:             2,
		LearningRate:       0.01,
		PrecisionDtype:     "float32",
	}
}

func validChannels() map[string]models.DataChannel {
	return map[string]models.DataChannel{
		"train": {
			Location:    "s3://training-data/image-classification/train",
			ContentType: "application/x-recordio",
		},
		"validation": {
			Location:    "s3://training-data/image-classification/validation",
			ContentType: "application/x-recordio",
		},
	}
}

func TestBuildValidSpec(t *testing.T) {
	b := testBuilder(t)

	spec, err := b.Build("caltech-256", validResources(), validHyperparameters(), validChannels())
	require.NoError(t, err)

	assert.Equal(t, "caltech-256", spec.JobName)
	assert.Equal(t, "811284229777.dkr.ecr.us-east-1.amazonaws.com/image-classification:1", spec.ImageReference)
	assert.Equal(t, "arn:aws:iam::123456789012:role/training", spec.RoleARN)
	assert.Equal(t, "s3://training-data/image-classification/output", spec.OutputLocation)
	assert.Equal(t, []string{"train", "validation"}, spec.ChannelNames())
}

func TestBuildGeneratesJobName(t *testing.T) {
	b := testBuilder(t)

	spec, err := b.Build("", validResources(), validHyperparameters(), validChannels())
	require.NoError(t, err)
	assert.NotEmpty(t, spec.JobName)
	assert.Contains(t, spec.JobName, "image-classification-")
}

func TestBuildValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel)
		field    string
	}{
		{
			name:  "zero instance count",
			field: "instance_count",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				res.InstanceCount = 0
			},
		},
		{
			name:  "negative instance count",
			field: "instance_count",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				res.InstanceCount = -3
			},
		},
		{
			name:  "missing instance type",
			field: "instance_type",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				res.InstanceType = ""
			},
		},
		{
			name:  "non-positive image shape dimension",
			field: "image_shape",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				hp.ImageShape = [3]int{3, 0, 224}
			},
		},
		{
			name:  "zero classes",
			field: "num_classes",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				hp.NumClasses = 0
			},
		},
		{
			name:  "zero batch size",
			field: "mini_batch_size",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				hp.MiniBatchSize = 0
			},
		},
		{
			name:  "zero learning rate",
			field: "learning_rate",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				hp.LearningRate = 0
			},
		},
		{
			name:  "unsupported precision dtype",
			field: "precision_dtype",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				hp.PrecisionDtype = "bfloat16"
			},
		},
		{
			name:  "missing validation channel",
			field: "data_channels",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				delete(channels, "validation")
			},
		},
		{
			name:  "channel without s3 location",
			field: "data_channels",
			mutate: func(res *Resources, hp *models.Hyperparameters, channels map[string]models.DataChannel) {
				channels["train"] = models.DataChannel{Location: "/tmp/train", ContentType: "application/x-recordio"}
			},
		},
	}

	b := testBuilder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validResources()
			hp := validHyperparameters()
			channels := validChannels()
			tt.mutate(&res, &hp, channels)

			_, err := b.Build("job", res, hp, channels)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestBuilderUnknownRegion(t *testing.T) {
	session := testSession()
	session.Region = "mars-north-1"
	_, err := NewBuilder(session)
	require.Error(t, err)
}

func TestHyperparameterWireMap(t *testing.T) {
	wire := validHyperparameters().WireMap()

	assert.Equal(t, map[string]string{
		"num_layers":           "18",
		"use_pretrained_model": "1",
		"image_shape":          "3,224,224",
		"num_classes":          "257",
		"num_training_samples": "15420",
		"mini_batch_size":      "128",
		"epochs":               "2",
		"learning_rate":        "0.01",
		"precision_dtype":      "float32",
	}, wire)
}
