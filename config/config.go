package config

import (
	"fmt"
	"os"
	"strconv"
)

// SessionContext carries the ambient cloud identity a workflow runs under.
// Passed explicitly into every component constructor.
type SessionContext struct {
	Region  string
	RoleARN string
	Bucket  string
	Prefix  string
}

// OutputLocation is the artifact destination for a session's training jobs.
func (s SessionContext) OutputLocation() string {
	return fmt.Sprintf("s3://%s/%s/output", s.Bucket, s.Prefix)
}

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// Cloud session
	Session SessionContext

	// Hosting defaults
	EndpointInstanceType  string
	EndpointInstanceCount int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost/training_orchestrator?sslmode=disable"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Session: SessionContext{
			Region:  getEnv("AWS_REGION", "us-east-1"),
			RoleARN: getEnv("TRAINING_ROLE_ARN", ""),
			Bucket:  getEnv("ARTIFACT_BUCKET", ""),
			Prefix:  getEnv("ARTIFACT_PREFIX", "image-classification"),
		},
		EndpointInstanceType:  getEnv("ENDPOINT_INSTANCE_TYPE", "ml.m5.xlarge"),
		EndpointInstanceCount: getEnvInt("ENDPOINT_INSTANCE_COUNT", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
