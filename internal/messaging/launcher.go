package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ReportRunner processes a single report to completion.
type ReportRunner interface {
	RunReport(ctx context.Context, reportId string) error
}

// ProcessRunner starts one worker process per report: `binary [args...] <reportId>`.
type ProcessRunner struct {
	binary string
	args   []string
}

func NewProcessRunner(binary string, args ...string) *ProcessRunner {
	return &ProcessRunner{binary: binary, args: args}
}

func (r *ProcessRunner) RunReport(ctx context.Context, reportId string) error {
	args := append(append([]string{}, r.args...), reportId)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Give the worker a chance to patch the report as failed before it is killed.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 45 * time.Second

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("worker for report %s failed: %w", reportId, err)
	}
	return nil
}

type Launcher struct {
	receiver Receiver
	runner   ReportRunner
}

func NewLauncher(receiver Receiver, runner ReportRunner) *Launcher {
	return &Launcher{receiver: receiver, runner: runner}
}

// Run handles tasks one at a time until ctx is cancelled or the receiver's
// task channel is closed.
func (l *Launcher) Run(ctx context.Context) error {
	tasks := l.receiver.Tasks()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-tasks:
			if !ok {
				slog.Info("task channel closed, stopping launcher")
				return nil
			}
			l.handleTask(ctx, task)
		}
	}
}

func (l *Launcher) handleTask(ctx context.Context, task Task) {
	var payload ReportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || strings.TrimSpace(payload.ReportId) == "" {
		slog.Error("rejecting malformed report task", "queue", task.Type(), "payload", string(task.Payload()), "error", err)
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting task", "error", err)
		}
		return
	}

	slog.Info("launching worker", "report_id", payload.ReportId)
	start := time.Now()

	err := l.runner.RunReport(ctx, payload.ReportId)
	switch {
	case err == nil:
		slog.Info("worker finished", "report_id", payload.ReportId, "duration", time.Since(start))
		if err := task.Ack(); err != nil {
			slog.Error("error acking task", "report_id", payload.ReportId, "error", err)
		}
	case ctx.Err() != nil:
		slog.Warn("launcher stopping, requeueing report", "report_id", payload.ReportId, "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error nacking task", "report_id", payload.ReportId, "error", err)
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Error("worker exited with error", "report_id", payload.ReportId, "exit_code", exitErr.ExitCode())
		} else {
			slog.Error("worker failed", "report_id", payload.ReportId, "error", err)
		}
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting task", "report_id", payload.ReportId, "error", err)
		}
	}
}
