package core

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// RunContext tracks one processing run of a report and the temporary files it
// creates. Cleanup removes them on every exit path.
type RunContext struct {
	RunId    string
	ReportId string
	Started  time.Time

	workDir string
	paths   []string
}

func NewRunContext(reportId, workDir string, started time.Time) *RunContext {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &RunContext{
		RunId:    fmt.Sprintf("%s-%d", reportId, started.UnixMilli()),
		ReportId: reportId,
		Started:  started,
		workDir:  workDir,
	}
}

// TempDir creates a tracked directory under the work dir.
func (rc *RunContext) TempDir(name string) (string, error) {
	if err := os.MkdirAll(rc.workDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create work dir %s: %w", rc.workDir, err)
	}

	dir, err := os.MkdirTemp(rc.workDir, rc.RunId+"-"+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir for run %s: %w", rc.RunId, err)
	}
	rc.Track(dir)

	return dir, nil
}

func (rc *RunContext) Track(path string) {
	rc.paths = append(rc.paths, path)
}

func (rc *RunContext) Paths() []string {
	return rc.paths
}

// Cleanup removes tracked paths, newest first. Failures are logged only.
func (rc *RunContext) Cleanup() {
	for i := len(rc.paths) - 1; i >= 0; i-- {
		if err := os.RemoveAll(rc.paths[i]); err != nil {
			slog.Warn("failed to remove temporary path", "run_id", rc.RunId, "path", rc.paths[i], "error", err)
		}
	}
	rc.paths = nil

	slog.Info("run cleaned up", "run_id", rc.RunId, "duration", time.Since(rc.Started))
}
