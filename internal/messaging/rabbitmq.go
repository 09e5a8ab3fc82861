package messaging

import (
	"audit-worker/internal/core/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrMissingReportId = errors.New("report task requires a report id")

var dialPolicy = utils.RetryPolicy{MaxAttempts: DialAttempts, BaseDelay: DialBaseDelay}

// reportChannel is a broker connection with one channel on which the durable
// report queue has been declared.
type reportChannel struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func dialReportQueue(ctx context.Context, url, queue string, prefetch int) (*reportChannel, error) {
	conn, err := utils.Retry(ctx, dialPolicy, func() (*amqp.Connection, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			slog.Warn("failed to connect to rabbitmq", "error", err)
		}
		return conn, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	rc := &reportChannel{conn: conn}
	if rc.ch, err = conn.Channel(); err != nil {
		rc.close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if prefetch > 0 {
		if err := rc.ch.Qos(prefetch, 0, false); err != nil {
			rc.close()
			return nil, fmt.Errorf("failed to set channel qos: %w", err)
		}
	}

	if _, err := rc.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		rc.close()
		return nil, fmt.Errorf("failed to declare rabbitmq queue %s: %w", queue, err)
	}

	slog.Info("connected to rabbitmq", "queue", queue)

	return rc, nil
}

func (rc *reportChannel) close() {
	if err := rc.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		slog.Error("error closing rabbitmq connection", "error", err)
	}
}

// redial keeps calling dial every ReconnectDelay until it succeeds. It gives
// up and returns false once stop is closed.
func redial[T any](stop <-chan struct{}, dial func() (T, error)) (T, bool) {
	for {
		v, err := dial()
		if err == nil {
			return v, true
		}
		slog.Warn("rabbitmq reconnect failed", "error", err, "retry_in", ReconnectDelay)

		select {
		case <-stop:
			var zero T
			return zero, false
		case <-time.After(ReconnectDelay):
		}
	}
}

type RabbitMQPublisher struct {
	url   string
	queue string

	mu      sync.RWMutex
	current *reportChannel

	closed    chan struct{}
	closeOnce sync.Once
}

func NewRabbitMQPublisher(rabbitMQURL, queue string) (*RabbitMQPublisher, error) {
	if queue == "" {
		queue = DefaultReportQueue
	}

	rc, err := dialReportQueue(context.Background(), rabbitMQURL, queue, 0)
	if err != nil {
		return nil, err
	}

	p := &RabbitMQPublisher{url: rabbitMQURL, queue: queue, current: rc, closed: make(chan struct{})}
	go p.keepAlive(rc)

	return p, nil
}

// keepAlive swaps in a fresh channel whenever the broker drops the current one.
func (p *RabbitMQPublisher) keepAlive(rc *reportChannel) {
	for {
		dropped := rc.ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case err, ok := <-dropped:
			if !ok {
				return
			}
			slog.Warn("rabbitmq publisher channel closed, reconnecting", "queue", p.queue, "error", err)
		case <-p.closed:
			return
		}

		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()

		next, ok := redial(p.closed, func() (*reportChannel, error) {
			return dialReportQueue(context.Background(), p.url, p.queue, 0)
		})
		if !ok {
			return
		}

		p.mu.Lock()
		select {
		case <-p.closed:
			p.mu.Unlock()
			next.close()
			return
		default:
			p.current = next
		}
		p.mu.Unlock()

		rc = next
	}
}

func (p *RabbitMQPublisher) PublishReportTask(ctx context.Context, payload ReportTaskPayload) error {
	if payload.ReportId == "" {
		return ErrMissingReportId
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode report task %s: %w", payload.ReportId, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil || p.current.ch.IsClosed() {
		return fmt.Errorf("rabbitmq channel for %s is not open", p.queue)
	}

	err = p.current.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		slog.Error("failed to publish report task", "queue", p.queue, "report_id", payload.ReportId, "error", err)
		return fmt.Errorf("failed to publish report %s: %w", payload.ReportId, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.current != nil {
			p.current.close()
			p.current = nil
		}
	})
}

type RabbitMQTask struct {
	d amqp.Delivery
}

func (t *RabbitMQTask) Type() string {
	return t.d.RoutingKey
}

func (t *RabbitMQTask) Payload() []byte {
	return t.d.Body
}

func (t *RabbitMQTask) Ack() error {
	return t.d.Ack(false)
}

// Nack requeues the delivery so another consumer can pick it up.
func (t *RabbitMQTask) Nack() error {
	return t.d.Nack(false, true)
}

func (t *RabbitMQTask) Reject() error {
	return t.d.Reject(false)
}

type subscription struct {
	rc   *reportChannel
	msgs <-chan amqp.Delivery
}

// RabbitMQReceiver delivers report tasks one at a time: the channel prefetch
// is 1 and each delivery stays unacked until the launcher settles it.
type RabbitMQReceiver struct {
	url   string
	queue string

	tasks     chan Task
	stop      chan struct{}
	closeOnce sync.Once
}

func NewRabbitMQReceiver(rabbitMQURL, queue string) (*RabbitMQReceiver, error) {
	if queue == "" {
		queue = DefaultReportQueue
	}
	c := &RabbitMQReceiver{
		url:   rabbitMQURL,
		queue: queue,
		tasks: make(chan Task),
		stop:  make(chan struct{}),
	}

	sub, err := c.subscribe()
	if err != nil {
		return nil, err
	}
	go c.run(sub)

	return c, nil
}

func (c *RabbitMQReceiver) subscribe() (subscription, error) {
	rc, err := dialReportQueue(context.Background(), c.url, c.queue, 1)
	if err != nil {
		return subscription{}, err
	}

	msgs, err := rc.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		rc.close()
		return subscription{}, fmt.Errorf("failed to consume from rabbitmq queue %s: %w", c.queue, err)
	}

	return subscription{rc: rc, msgs: msgs}, nil
}

func (c *RabbitMQReceiver) run(sub subscription) {
	for {
		c.forward(sub.msgs)
		sub.rc.close()

		select {
		case <-c.stop:
			slog.Info("stopped rabbitmq consumer", "queue", c.queue)
			return
		default:
		}

		slog.Warn("rabbitmq deliveries stopped, resubscribing", "queue", c.queue)

		var ok bool
		if sub, ok = redial(c.stop, c.subscribe); !ok {
			return
		}
		slog.Info("resubscribed to rabbitmq queue", "queue", c.queue)
	}
}

// forward hands deliveries to Tasks until the delivery channel closes or the
// receiver is stopped.
func (c *RabbitMQReceiver) forward(msgs <-chan amqp.Delivery) {
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case c.tasks <- &RabbitMQTask{d: d}:
			case <-c.stop:
				return
			}
		case <-c.stop:
			return
		}
	}
}

func (c *RabbitMQReceiver) Tasks() <-chan Task {
	return c.tasks
}

func (c *RabbitMQReceiver) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
}
