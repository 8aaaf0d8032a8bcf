// Package bedrock implements the C2 provider adapter for AWS Bedrock's
// Converse/ConverseStream API, grounded on
// internal/agent/providers/bedrock.go, generalized to the canonical types
// of internal/canon. It is the adapter used to exercise the router's
// WithFallback credential strategy (§DS-1): Bedrock's own SDK already
// layers static credentials over the default AWS credential chain, which
// maps directly onto that strategy's "try static, then fall back" shape.
package bedrock

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/vectorcast/gateway/internal/providers"
)

// Adapter implements providers.Provider for AWS Bedrock.
type Adapter struct {
	providers.BaseAdapter
	client       *bedrockruntime.Client
	defaultModel string
}

// Config mirrors the teacher's BedrockConfig.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// New constructs a Bedrock adapter, loading AWS credentials via the static
// keys in cfg when present, falling back to the default provider chain
// (environment, shared config, IAM role) otherwise — matching
// BedrockProvider's construction exactly.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, err
	}

	return &Adapter{
		BaseAdapter:  providers.NewBaseAdapter("bedrock", 3, time.Second),
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (a *Adapter) Name() string { return "bedrock" }

func (a *Adapter) modelOrDefault(model string) string {
	if model == "" {
		return a.defaultModel
	}
	return model
}

// isRetryableError is grounded verbatim on BedrockProvider.isRetryableError.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "throttlingexception") ||
		strings.Contains(msg, "toomanyrequestsexception") ||
		strings.Contains(msg, "serviceunavailableexception") {
		return true
	}
	retryable := []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"}
	for _, s := range retryable {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
