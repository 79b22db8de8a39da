package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsProvider(t *testing.T) {
	assert.Nil(t, credentialsProvider(S3ClientConfig{Region: "us-east-1"}), "ambient chain is used by default")
	assert.Nil(t, credentialsProvider(S3ClientConfig{AccessKeyID: "minio"}), "a lone key id is ignored")

	static := credentialsProvider(S3ClientConfig{AccessKeyID: "minio", SecretAccessKey: "minio123"})
	require.NotNil(t, static)
	creds, err := static.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minio", creds.AccessKeyID)

	assert.IsType(t, aws.AnonymousCredentials{}, credentialsProvider(S3ClientConfig{Anonymous: true, AccessKeyID: "a", SecretAccessKey: "b"}))
}

func TestWarmCredentialsWaitsForSlowMetadataService(t *testing.T) {
	calls := 0
	provider := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		calls++
		if calls < 3 {
			return aws.Credentials{}, errors.New("ec2imds: connection refused")
		}
		return aws.Credentials{AccessKeyID: "role", SecretAccessKey: "secret"}, nil
	})

	require.NoError(t, warmCredentials(context.Background(), provider, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 4)))
	assert.Equal(t, 3, calls)
}

func TestWarmCredentialsGivesUp(t *testing.T) {
	calls := 0
	provider := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		calls++
		return aws.Credentials{}, errors.New("no credentials")
	})

	err := warmCredentials(context.Background(), provider, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2))
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Equal(t, 3, calls)
}
