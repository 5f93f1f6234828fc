// Package storage loads the shared AWS configuration and builds the service
// clients used by the suppression S3 store, the DynamoDB cost log, the SES
// alert notifier and the Bedrock LLM backend.
package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

// AWSOptions selects the region and credentials.
type AWSOptions struct {
	Region    string
	Profile   string
	AccessKey string
	SecretKey string
}

// LoadAWSConfig loads the default AWS config chain for the region. A named
// profile or a static key pair overrides the chain's credentials.
func LoadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Profile != "" {
		loaders = append(loaders, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewS3Client creates an S3 client for the region and profile.
func NewS3Client(ctx context.Context, opts AWSOptions) (*s3.Client, error) {
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// NewDynamoDBClient creates a DynamoDB client for the region and profile.
func NewDynamoDBClient(ctx context.Context, opts AWSOptions) (*dynamodb.Client, error) {
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewBedrockClient creates a Bedrock runtime client for the region and profile.
func NewBedrockClient(ctx context.Context, opts AWSOptions) (*bedrockruntime.Client, error) {
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// NewSESClient creates an SES v2 client for the region and credentials.
func NewSESClient(ctx context.Context, opts AWSOptions) (*sesv2.Client, error) {
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return sesv2.NewFromConfig(cfg), nil
}
