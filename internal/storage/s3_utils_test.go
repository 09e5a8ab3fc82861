package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateAWSEnv hides any credentials of the machine running the tests.
func isolateAWSEnv(t *testing.T) {
	dir := t.TempDir()
	for _, key := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_PROFILE",
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_WEB_IDENTITY_TOKEN_FILE", "AWS_ROLE_ARN",
		"AWS_CONTAINER_CREDENTIALS_RELATIVE_URI", "AWS_CONTAINER_CREDENTIALS_FULL_URI",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	isolateAWSEnv(t)

	cfg, err := loadAWSConfig(context.Background(), S3ClientConfig{
		Region:          "eu-west-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
}

func TestLoadAWSConfigFallsBackToAnonymous(t *testing.T) {
	isolateAWSEnv(t)

	cfg, err := loadAWSConfig(context.Background(), S3ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, defaultS3Region, cfg.Region)
	assert.IsType(t, aws.AnonymousCredentials{}, cfg.Credentials)
}

func TestNewS3ClientCustomEndpoint(t *testing.T) {
	isolateAWSEnv(t)

	client, err := newS3Client(context.Background(), S3ClientConfig{Endpoint: "http://localhost:9000", AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)

	opts := client.Options()
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	client, err = newS3Client(context.Background(), S3ClientConfig{AccessKeyID: "a", SecretAccessKey: "b"})
	require.NoError(t, err)
	assert.Nil(t, client.Options().BaseEndpoint)
	assert.False(t, client.Options().UsePathStyle)
}
