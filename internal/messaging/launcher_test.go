package messaging_test

import (
	"audit-worker/internal/messaging"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	ids     []string
	failFor map[string]bool
	block   chan struct{}
}

func (r *fakeRunner) RunReport(ctx context.Context, reportId string) error {
	r.mu.Lock()
	r.ids = append(r.ids, reportId)
	r.mu.Unlock()

	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if r.failFor[reportId] {
		return errors.New("exit status 1")
	}
	return nil
}

func (r *fakeRunner) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.ids...)
}

func TestLauncherAcksAndRejects(t *testing.T) {
	queue := messaging.NewInMemoryQueue("")
	ctx := context.Background()

	require.NoError(t, queue.PublishReportTask(ctx, messaging.ReportTaskPayload{ReportId: "ok"}))
	require.NoError(t, queue.PublishReportTask(ctx, messaging.ReportTaskPayload{ReportId: "broken"}))
	require.NoError(t, queue.PublishRaw([]byte("not json")))
	require.NoError(t, queue.PublishRaw([]byte(`{"ReportId":"  "}`)))
	queue.Close()

	runner := &fakeRunner{failFor: map[string]bool{"broken": true}}
	launcher := messaging.NewLauncher(queue, runner)

	require.NoError(t, launcher.Run(ctx))

	assert.Equal(t, []string{"ok", "broken"}, runner.calls())
	assert.Equal(t, []messaging.TaskState{
		messaging.TaskAcked,
		messaging.TaskRejected,
		messaging.TaskRejected,
		messaging.TaskRejected,
	}, queue.States())
}

func TestLauncherRequeuesOnShutdown(t *testing.T) {
	queue := messaging.NewInMemoryQueue("reports")
	require.NoError(t, queue.PublishReportTask(context.Background(), messaging.ReportTaskPayload{ReportId: "slow"}))

	runner := &fakeRunner{block: make(chan struct{})}
	launcher := messaging.NewLauncher(queue, runner)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- launcher.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(runner.calls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("launcher did not stop")
	}

	assert.Equal(t, []messaging.TaskState{messaging.TaskNacked}, queue.States())
}

func TestInMemoryQueueTaskType(t *testing.T) {
	queue := messaging.NewInMemoryQueue("reports")
	require.NoError(t, queue.PublishReportTask(context.Background(), messaging.ReportTaskPayload{ReportId: "abc"}))

	task := <-queue.Tasks()
	assert.Equal(t, "reports", task.Type())
	assert.JSONEq(t, `{"ReportId":"abc"}`, string(task.Payload()))
	assert.Equal(t, []messaging.TaskState{messaging.TaskPending}, queue.States())
}

const fakeWorker = `#!/bin/sh
echo "$@" > "$FAKE_ARGS_FILE"
for last; do :; done
if [ "$last" = "bad" ]; then
  exit 3
fi
exit 0
`

func TestProcessRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake worker script requires a POSIX shell")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "worker")
	require.NoError(t, os.WriteFile(bin, []byte(fakeWorker), 0755))

	argsFile := filepath.Join(dir, "args.txt")
	t.Setenv("FAKE_ARGS_FILE", argsFile)

	runner := messaging.NewProcessRunner(bin, "-env", "worker.env")

	require.NoError(t, runner.RunReport(context.Background(), "good"))
	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "-env worker.env good", strings.TrimSpace(string(args)))

	err = runner.RunReport(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report bad")
}
