package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunContext(t *testing.T) {
	workDir := t.TempDir()
	started := time.UnixMilli(1700000000123)

	rc := NewRunContext("report-7", workDir, started)
	assert.Equal(t, "report-7-1700000000123", rc.RunId)

	dir, err := rc.TempDir("frames")
	require.NoError(t, err)
	assert.Equal(t, workDir, filepath.Dir(dir))
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "report-7-1700000000123-frames-"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_00001.jpg"), []byte("x"), 0644))

	extra := filepath.Join(workDir, "extra.txt")
	require.NoError(t, os.WriteFile(extra, []byte("x"), 0644))
	rc.Track(extra)

	// Paths that are already gone do not stop cleanup.
	rc.Track(filepath.Join(workDir, "never-created"))

	assert.Len(t, rc.Paths(), 3)

	rc.Cleanup()

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(extra)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, rc.Paths())
}

func TestRunContextCreatesWorkDir(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "nested", "work")

	rc := NewRunContext("r", workDir, time.Now())
	dir, err := rc.TempDir("audit")
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.NoError(t, err)

	rc.Cleanup()
}
