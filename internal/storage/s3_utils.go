package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

// S3ClientConfig selects the S3 endpoint and credentials. An empty Endpoint
// means AWS itself; anything else is treated as an S3 compatible server such
// as MinIO and addressed path style.
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// loadAWSConfig prefers the static keys in cfg, then the default credential
// chain, and falls back to anonymous access so public buckets stay readable.
func loadAWSConfig(ctx context.Context, cfg S3ClientConfig) (aws.Config, error) {
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	if awsCfg.Credentials == nil {
		awsCfg.Credentials = aws.AnonymousCredentials{}
	} else if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		slog.Warn("no aws credentials available, using anonymous access", "error", err)
		awsCfg.Credentials = aws.AnonymousCredentials{}
	}

	return awsCfg, nil
}

func newS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
