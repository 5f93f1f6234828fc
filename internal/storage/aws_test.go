package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAWSConfig_StaticCredentials(t *testing.T) {
	ctx := context.Background()
	cfg, err := LoadAWSConfig(ctx, AWSOptions{
		Region:    "eu-west-1",
		AccessKey: "AKIATEST",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestNewClients(t *testing.T) {
	ctx := context.Background()
	opts := AWSOptions{Region: "us-east-1", AccessKey: "a", SecretKey: "b"}

	s3c, err := NewS3Client(ctx, opts)
	require.NoError(t, err)
	assert.NotNil(t, s3c)

	ddb, err := NewDynamoDBClient(ctx, opts)
	require.NoError(t, err)
	assert.NotNil(t, ddb)

	br, err := NewBedrockClient(ctx, opts)
	require.NoError(t, err)
	assert.NotNil(t, br)

	ses, err := NewSESClient(ctx, opts)
	require.NoError(t, err)
	assert.NotNil(t, ses)
}
