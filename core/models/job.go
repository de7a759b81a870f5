package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TrainingJobSpec describes a training job to run on the managed training
// service. Built and validated by the spec package; immutable once built.
type TrainingJobSpec struct {
	JobName         string
	ImageReference  string // algorithm container image
	RoleARN         string
	InstanceType    string
	InstanceCount   int
	VolumeSizeGB    int
	MaxRuntime      time.Duration
	OutputLocation  string // s3:// URI the model artifact is written under
	Hyperparameters Hyperparameters
	DataChannels    map[string]DataChannel
}

// DataChannel points a named dataset partition at the training job.
type DataChannel struct {
	Location    string // s3:// URI
	ContentType string // e.g. "application/x-recordio"
}

// Hyperparameters for the built-in image classification algorithm.
// Unknown keys never reach this struct; the spec package rejects them
// at construction instead of forwarding them to the service.
type Hyperparameters struct {
	NumLayers          int
	UsePretrainedModel bool
	ImageShape         [3]int // channels, height, width
	NumClasses         int
	NumTrainingSamples int
	MiniBatchSize      int
	Epochs             int
	LearningRate       float64
	PrecisionDtype     string // "float32" or "float16"
}

// WireMap flattens the hyperparameters into the string mapping the
// training service accepts.
func (h Hyperparameters) WireMap() map[string]string {
	pretrained := "0"
	if h.UsePretrainedModel {
		pretrained = "1"
	}
	shape := make([]string, len(h.ImageShape))
	for i, d := range h.ImageShape {
		shape[i] = fmt.Sprintf("%d", d)
	}
	return map[string]string{
		"num_layers":           fmt.Sprintf("%d", h.NumLayers),
		"use_pretrained_model": pretrained,
		"image_shape":          strings.Join(shape, ","),
		"num_classes":          fmt.Sprintf("%d", h.NumClasses),
		"num_training_samples": fmt.Sprintf("%d", h.NumTrainingSamples),
		"mini_batch_size":      fmt.Sprintf("%d", h.MiniBatchSize),
		"epochs":               fmt.Sprintf("%d", h.Epochs),
		"learning_rate":        fmt.Sprintf("%g", h.LearningRate),
		"precision_dtype":      h.PrecisionDtype,
	}
}

// ChannelNames returns the spec's channel names in sorted order.
func (s *TrainingJobSpec) ChannelNames() []string {
	names := make([]string, 0, len(s.DataChannels))
	for name := range s.DataChannels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TrainingJob is the client-side replica of a job's remote lifecycle.
// Created by the orchestrator on submit; mutated only by its polling loop.
type TrainingJob struct {
	Name             string
	Spec             *TrainingJobSpec
	Status           JobStatus
	ArtifactLocation string // populated only on Succeeded
	FailureReason    string // populated only on Failed
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// JobStatus represents the current status of a training job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusStopped    JobStatus = "stopped"
)

// IsTerminal reports whether no further transitions are permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusStopped
}

// PredictionResult is the decoded output of one inference call.
// Produced per call, never persisted.
type PredictionResult struct {
	ClassProbabilities []float64
	PredictedIndex     int
	PredictedLabel     string
}
