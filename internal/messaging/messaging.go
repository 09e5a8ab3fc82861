package messaging

import (
	"context"
	"time"
)

const (
	DefaultReportQueue = "report_queue"

	DialAttempts   = 5
	DialBaseDelay  = time.Second
	ReconnectDelay = 30 * time.Second
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type ReportTaskPayload struct {
	ReportId string
}

type Publisher interface {
	PublishReportTask(ctx context.Context, payload ReportTaskPayload) error

	Close()
}

type Receiver interface {
	Tasks() <-chan Task

	Close()
}
