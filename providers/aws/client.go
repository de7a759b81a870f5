package aws

import (
	"context"

	appconfig "training-orchestrator/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// Client bundles the AWS service clients one session works with.
type Client struct {
	session appconfig.SessionContext

	sagemakerClient *sagemaker.Client
	runtimeClient   *sagemakerruntime.Client
	s3Client        *s3.Client
	pricingClient   *pricing.Client
}

// NewClient creates a new AWS client bound to the session's region.
func NewClient(ctx context.Context, session appconfig.SessionContext) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(session.Region))
	if err != nil {
		return nil, err
	}

	// The pricing API only lives in us-east-1 and ap-south-1.
	pricingCfg := cfg.Copy()
	pricingCfg.Region = "us-east-1"

	return &Client{
		session:         session,
		sagemakerClient: sagemaker.NewFromConfig(cfg),
		runtimeClient:   sagemakerruntime.NewFromConfig(cfg),
		s3Client:        s3.NewFromConfig(cfg),
		pricingClient:   pricing.NewFromConfig(pricingCfg),
	}, nil
}
