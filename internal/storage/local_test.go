package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestObjectStore(t *testing.T) (*LocalObjectStore, string) {
	t.Helper()
	dir := t.TempDir()
	objectStore, err := NewLocalObjectStore(dir, "artifacts")
	require.NoError(t, err)
	return objectStore, dir
}

func TestLocalObjectStore_Upload(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	src := filepath.Join(t.TempDir(), "diagnostic.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"ok":true}`), 0644))

	uri, err := objectStore.Upload(context.Background(), src, "deepfake/report-1/diagnostic.json")
	require.NoError(t, err)
	assert.Equal(t, "file://artifacts/deepfake/report-1/diagnostic.json", uri)

	data, err := os.ReadFile(filepath.Join(baseDir, "artifacts", "deepfake", "report-1", "diagnostic.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestLocalObjectStore_Download(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	srcPath := filepath.Join(baseDir, "uploads", "videos", "clip.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(srcPath), os.ModePerm))
	require.NoError(t, os.WriteFile(srcPath, []byte("video"), 0644))

	dest := t.TempDir()
	localPath, err := objectStore.Download(context.Background(), "file://uploads/videos/clip.mp4", dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "clip.mp4"), localPath)

	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))
}

func TestLocalObjectStore_RoundTrip(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	src := filepath.Join(t.TempDir(), "raw.txt")
	require.NoError(t, os.WriteFile(src, []byte("raw model output"), 0644))

	uri, err := objectStore.Upload(context.Background(), src, "audit/r/raw.txt")
	require.NoError(t, err)

	localPath, err := objectStore.Download(context.Background(), uri, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "raw model output", string(data))
}

func TestLocalObjectStore_DownloadErrors(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	_, err := objectStore.Download(context.Background(), "s3://bucket/key.mp4", t.TempDir())
	assert.True(t, errors.Is(err, ErrUnsupportedScheme))

	_, err = objectStore.Download(context.Background(), "file://uploads/missing.mp4", t.TempDir())
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	_, err = objectStore.Download(context.Background(), "not a uri", t.TempDir())
	assert.True(t, errors.Is(err, ErrInvalidURI))
}

func TestLocalObjectStore_KeyEscape(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	src := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	_, err := objectStore.Upload(context.Background(), src, "../../outside.txt")
	assert.Error(t, err)
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri    string
		want   ObjectURI
		hasErr bool
	}{
		{uri: "s3://bucket/videos/clip.mp4", want: ObjectURI{Scheme: "s3", Bucket: "bucket", Key: "videos/clip.mp4"}},
		{uri: "S3://bucket/a.mp4", want: ObjectURI{Scheme: "s3", Bucket: "bucket", Key: "a.mp4"}},
		{uri: "file://local/a/b/c.txt", want: ObjectURI{Scheme: "file", Bucket: "local", Key: "a/b/c.txt"}},
		{uri: "s3://bucket", hasErr: true},
		{uri: "s3://bucket/", hasErr: true},
		{uri: "s3://bucket/dir/", hasErr: true},
		{uri: "bucket/key", hasErr: true},
		{uri: "", hasErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.uri, func(t *testing.T) {
			got, err := ParseURI(tc.uri)
			if tc.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	obj, err := ParseURI("s3://bucket/videos/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", obj.Filename())
	assert.Equal(t, "s3://bucket/videos/clip.mp4", obj.String())
}
