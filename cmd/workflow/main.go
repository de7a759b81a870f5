package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"training-orchestrator/config"
	"training-orchestrator/core/algorithm"
	"training-orchestrator/core/codec"
	"training-orchestrator/core/cost"
	"training-orchestrator/core/endpoint"
	"training-orchestrator/core/models"
	"training-orchestrator/core/orchestrator"
	"training-orchestrator/core/spec"
	"training-orchestrator/providers/aws"
	"training-orchestrator/storage"
)

// The workflow runs one supervised fine-tuning session end to end: upload
// the dataset shards, train, deploy the artifact, classify one image, then
// tear the endpoint down.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Workflow failed: %v", err)
	}
}

func run() error {
	cfg := config.Load()
	trainPath := getEnv("TRAIN_DATA_PATH", "caltech-256-60-train.rec")
	validationPath := getEnv("VALIDATION_DATA_PATH", "caltech-256-60-val.rec")
	imagePath := getEnv("PREDICT_IMAGE_PATH", "test.jpg")
	labelsPath := getEnv("LABELS_PATH", "labels.txt")

	ctx := context.Background()

	awsClient, err := aws.NewClient(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("initializing AWS client: %w", err)
	}
	builder, err := spec.NewBuilder(cfg.Session)
	if err != nil {
		return err
	}

	labels, err := readLabels(labelsPath)
	if err != nil {
		return err
	}

	// Upload dataset shards
	artifacts := storage.NewManager(awsClient, nil)
	channels := make(map[string]models.DataChannel)
	for name, path := range map[string]string{"train": trainPath, "validation": validationPath} {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s shard: %w", name, err)
		}
		uri, err := artifacts.UploadDataset(ctx, "", name+"/"+name+".rec", body)
		if err != nil {
			return err
		}
		log.Printf("Uploaded %s shard to %s", name, uri)
		channels[name] = models.DataChannel{Location: uri, ContentType: algorithm.ContentType}
	}

	// Build and submit the training job
	jobSpec, err := builder.Build("",
		spec.Resources{
			InstanceType:  getEnv("TRAINING_INSTANCE_TYPE", "ml.p2.xlarge"),
			InstanceCount: 1,
			VolumeSizeGB:  50,
			MaxRuntime:    6 * time.Hour,
		},
		models.Hyperparameters{
			NumLayers:          18,
			UsePretrainedModel: true,
			ImageShape:         [3]int{3, 224, 224},
			NumClasses:         len(labels),
			NumTrainingSamples: 15420,
			MiniBatchSize:      128,
			Epochs:             2,
			LearningRate:       0.01,
			PrecisionDtype:     "float32",
		},
		channels,
	)
	if err != nil {
		return err
	}

	policy := orchestrator.DefaultPollPolicy()
	orch := orchestrator.NewOrchestrator(awsClient, policy, nil)
	tracker := cost.NewTracker(cost.NewCalculator(awsClient))

	job, err := orch.Submit(ctx, jobSpec)
	if err != nil {
		return err
	}
	log.Printf("Submitted training job %s", job.Name)
	tracker.Track(job.Name, jobSpec.InstanceType, jobSpec.InstanceCount)

	_, err = orch.AwaitCompletion(ctx, job, 30*time.Second, 6*time.Hour)
	log.Printf("Training compute cost: $%.2f", tracker.StopTracking(ctx, job.Name))
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusSucceeded {
		return fmt.Errorf("training job %s finished %s: %s", job.Name, job.Status, job.FailureReason)
	}
	log.Printf("Training succeeded, artifact at %s", job.ArtifactLocation)

	// Deploy and predict; the endpoint bills until deleted, so teardown is
	// deferred before any prediction work happens.
	manager := endpoint.NewManager(awsClient, policy)
	ep, err := manager.Deploy(ctx, job, cfg.EndpointInstanceType, cfg.EndpointInstanceCount)
	if ep != nil {
		tracker.Track(ep.Name, ep.InstanceType, ep.InstanceCount)
		defer func() {
			teardownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := manager.Teardown(teardownCtx, ep); err != nil {
				log.Printf("Teardown of endpoint %s failed: %v", ep.Name, err)
			}
			log.Printf("Hosting compute cost: $%.2f", tracker.StopTracking(teardownCtx, ep.Name))
		}()
	}
	if err != nil {
		return err
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	payload, contentType := codec.Encode(image)
	raw, err := manager.Predict(ctx, ep, payload, contentType)
	if err != nil {
		return err
	}

	result, err := codec.Decode(raw, labels)
	if err != nil {
		return err
	}

	fmt.Printf("Predicted label: %s (class %d, probability %.4f)\n",
		result.PredictedLabel, result.PredictedIndex, result.ClassProbabilities[result.PredictedIndex])
	printTop(result, labels, 5)
	return nil
}

func printTop(result *models.PredictionResult, labels []string, n int) {
	indices := make([]int, len(result.ClassProbabilities))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return result.ClassProbabilities[indices[a]] > result.ClassProbabilities[indices[b]]
	})
	if n > len(indices) {
		n = len(indices)
	}
	for rank := 0; rank < n; rank++ {
		i := indices[rank]
		fmt.Printf("  %d. %-24s %.4f\n", rank+1, labels[i], result.ClassProbabilities[i])
	}
}

func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
