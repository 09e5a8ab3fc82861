package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("queue is closed")

// TaskState records what the consumer did with an in-memory task.
type TaskState string

const (
	TaskPending  TaskState = ""
	TaskAcked    TaskState = "acked"
	TaskNacked   TaskState = "nacked"
	TaskRejected TaskState = "rejected"
)

type inMemoryTask struct {
	queue   string
	payload []byte

	mu    sync.Mutex
	state TaskState
}

func (t *inMemoryTask) Type() string {
	return t.queue
}

func (t *inMemoryTask) Payload() []byte {
	return t.payload
}

func (t *inMemoryTask) settle(state TaskState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	return nil
}

func (t *inMemoryTask) Ack() error {
	return t.settle(TaskAcked)
}

func (t *inMemoryTask) Nack() error {
	return t.settle(TaskNacked)
}

func (t *inMemoryTask) Reject() error {
	return t.settle(TaskRejected)
}

func (t *inMemoryTask) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

type InMemoryQueue struct {
	queue string

	mu        sync.Mutex
	tasks     chan Task
	closed    bool
	published []*inMemoryTask
}

func NewInMemoryQueue(queue string) *InMemoryQueue {
	if queue == "" {
		queue = DefaultReportQueue
	}
	return &InMemoryQueue{
		queue: queue,
		tasks: make(chan Task, 100),
	}
}

func (q *InMemoryQueue) publishTaskInternal(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.PublishRaw(data)
}

// PublishRaw enqueues an undecoded body.
func (q *InMemoryQueue) PublishRaw(data []byte) error {
	task := &inMemoryTask{queue: q.queue, payload: data}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.published = append(q.published, task)
	q.tasks <- task

	return nil
}

func (q *InMemoryQueue) PublishReportTask(ctx context.Context, payload ReportTaskPayload) error {
	return q.publishTaskInternal(payload)
}

// States returns the settlement state of every task published so far, in
// publish order.
func (q *InMemoryQueue) States() []TaskState {
	q.mu.Lock()
	defer q.mu.Unlock()

	states := make([]TaskState, 0, len(q.published))
	for _, t := range q.published {
		states = append(states, t.State())
	}
	return states
}

func (q *InMemoryQueue) Tasks() <-chan Task {
	return q.tasks
}

// Close stops publishing. Tasks already queued can still be received.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		close(q.tasks)
		q.closed = true
	}
}
