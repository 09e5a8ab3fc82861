package core

import (
	"audit-worker/internal/core/types"
	"audit-worker/internal/core/utils"
	"audit-worker/internal/storage"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrMissingFileURL     = errors.New("report has no fileUrl")
	ErrNoFramesClassified = errors.New("no frame could be classified")
	ErrUnknownReportType  = errors.New("unknown report type")
)

type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string, framesPerSecond float64) ([]string, error)
}

type InferenceClient interface {
	ClassifyFrame(ctx context.Context, imagePath string) (types.FrameOutput, error)
	TextInference(ctx context.Context, prompt string) (string, error)
	ReportInference(ctx context.Context, prompt string, imagePaths []string) (string, error)
}

// storageRetry marks errors that a second attempt cannot fix.
func storageRetry(err error) error {
	if errors.Is(err, storage.ErrInvalidURI) || errors.Is(err, storage.ErrUnsupportedScheme) || errors.Is(err, storage.ErrObjectNotFound) {
		return utils.Permanent(err)
	}
	return err
}

func download(ctx context.Context, store storage.ObjectStore, policy utils.RetryPolicy, uri, destDir string) (string, error) {
	path, err := utils.Retry(ctx, policy, func() (string, error) {
		path, err := store.Download(ctx, uri, destDir)
		return path, storageRetry(err)
	})
	if err != nil {
		return "", fmt.Errorf("error downloading %s: %w", uri, err)
	}
	return path, nil
}

// uploadArtifact writes data to dir/name and uploads it under key.
func uploadArtifact(ctx context.Context, store storage.ObjectStore, policy utils.RetryPolicy, dir, name, key string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error writing artifact %s: %w", path, err)
	}

	uri, err := utils.Retry(ctx, policy, func() (string, error) {
		uri, err := store.Upload(ctx, path, key)
		return uri, storageRetry(err)
	})
	if err != nil {
		return "", fmt.Errorf("error uploading artifact %s: %w", key, err)
	}
	return uri, nil
}
