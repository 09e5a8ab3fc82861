package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const SchemeFile = "file"

// LocalObjectStore maps file://bucket/key to baseDir/bucket/key.
type LocalObjectStore struct {
	baseDir string
	bucket  string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(dir, bucket string) (*LocalObjectStore, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	return &LocalObjectStore{baseDir: baseDir, bucket: bucket}, nil
}

func (s *LocalObjectStore) Download(ctx context.Context, uri, destDir string) (string, error) {
	obj, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if obj.Scheme != SchemeFile {
		return "", fmt.Errorf("%w '%s' for local store: %s", ErrUnsupportedScheme, obj.Scheme, uri)
	}

	src, err := localStorageFullpath(s.baseDir, obj.Bucket, obj.Key)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, uri)
	}

	dest := filepath.Join(destDir, obj.Filename())
	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", uri, err)
	}

	return dest, nil
}

func (s *LocalObjectStore) Upload(ctx context.Context, localPath, key string) (string, error) {
	dest, err := localStorageFullpath(s.baseDir, s.bucket, key)
	if err != nil {
		return "", err
	}

	if err := copyFile(localPath, dest); err != nil {
		return "", fmt.Errorf("failed to upload %s to %s/%s: %w", localPath, s.bucket, key, err)
	}

	return ObjectURI{Scheme: SchemeFile, Bucket: s.bucket, Key: key}.String(), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func localStorageFullpath(baseDir, bucket, key string) (string, error) {
	full := filepath.Join(baseDir, bucket, filepath.FromSlash(key))
	if !strings.HasPrefix(full, filepath.Join(baseDir, bucket)+string(filepath.Separator)) {
		return "", fmt.Errorf("key '%s' escapes bucket '%s'", key, bucket)
	}
	return full, nil
}
