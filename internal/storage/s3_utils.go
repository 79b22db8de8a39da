package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
)

const (
	credentialsRetryDelay  = 2 * time.Second
	credentialsMaxAttempts = 5
)

type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Anonymous skips request signing. Only for public buckets.
	Anonymous bool
}

func createS3Config(ctx context.Context, s3Region string, creds aws.CredentialsProvider) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{}

	if s3Region != "" {
		opts = append(opts, aws_config.WithRegion(s3Region))
	}

	if creds != nil {
		opts = append(opts, aws_config.WithCredentialsProvider(creds))
	}

	return aws_config.LoadDefaultConfig(ctx, opts...)
}

// credentialsProvider returns nil when the default chain (env, shared config,
// instance role) should be used.
func credentialsProvider(cfg S3ClientConfig) aws.CredentialsProvider {
	switch {
	case cfg.Anonymous:
		return aws.AnonymousCredentials{}
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		return credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	default:
		return nil
	}
}

func credentialsBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(credentialsRetryDelay), credentialsMaxAttempts-1)
}

// warmCredentials resolves the credentials up front so a slow instance
// metadata service at boot is waited out here rather than during a fetch. An
// unresolved chain is kept as is, it is retried lazily on every request.
func warmCredentials(ctx context.Context, provider aws.CredentialsProvider, b backoff.BackOff) error {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		_, err := provider.Retrieve(ctx)
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.Warn("aws credentials not available yet", "attempt", attempts, "retry_in", next, "error", err)
	})
	if err != nil {
		return fmt.Errorf("unable to resolve aws credentials after %d attempts: %w", attempts, err)
	}
	return nil
}

func initializeS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	awsCfg, err := createS3Config(ctx, cfg.Region, credentialsProvider(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	if !cfg.Anonymous {
		if err := warmCredentials(ctx, awsCfg.Credentials, credentialsBackOff()); err != nil {
			slog.Warn("continuing with unresolved aws credentials", "error", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Needed for MinIO which doesn't support virtual hosted buckets
			o.UsePathStyle = true
		}
	})

	return client, nil
}
