//go:build integration
// +build integration

package messaging_test

import (
	"audit-worker/internal/messaging"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

type recordingRunner struct {
	mu   sync.Mutex
	ids  []string
	done chan struct{}
	want int
}

func (r *recordingRunner) RunReport(ctx context.Context, reportId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, reportId)
	if len(r.ids) == r.want {
		close(r.done)
	}
	return nil
}

func TestRabbitMQReportQueue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.11-management")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)

	const queue = "report_queue_test"

	publisher, err := messaging.NewRabbitMQPublisher(url, queue)
	require.NoError(t, err)
	defer publisher.Close()

	receiver, err := messaging.NewRabbitMQReceiver(url, queue)
	require.NoError(t, err)
	defer receiver.Close()

	for _, id := range []string{"report-1", "report-2", "report-3"} {
		require.NoError(t, publisher.PublishReportTask(ctx, messaging.ReportTaskPayload{ReportId: id}))
	}
	assert.Error(t, publisher.PublishReportTask(ctx, messaging.ReportTaskPayload{}))

	runner := &recordingRunner{done: make(chan struct{}), want: 3}
	launcher := messaging.NewLauncher(receiver, runner)

	launchCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- launcher.Run(launchCtx)
	}()

	select {
	case <-runner.done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for report tasks")
	}

	stop()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{"report-1", "report-2", "report-3"}, runner.ids)
}
