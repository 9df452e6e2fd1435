package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/xid"
	"github.com/samber/oops"

	"titanhub/internal/metrics"
)

// Event types published after successful writes.
const (
	EventUserRegistered    = "user.registered"
	EventProjectCreated    = "project.created"
	EventDiscussionCreated = "discussion.created"
	EventCommentCreated    = "comment.created"
	EventContentUpvoted    = "content.upvoted"
	EventStatusChanged     = "discussion.status_changed"
)

// Event is the JSON payload put on the broker.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	ActorID    uint           `json:"actorId,omitempty"`
	Subject    string         `json:"subject"`
	SubjectID  uint           `json:"subjectId"`
	Data       map[string]any `json:"data,omitempty"`
}

func newEvent(typ, subject string, subjectID, actorID uint, data map[string]any) Event {
	return Event{
		ID:         xid.New().String(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Subject:    subject,
		SubjectID:  subjectID,
		Data:       data,
	}
}

// Publisher delivers domain events. Failures never undo the write that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// publishTimeout bounds a single broker round trip, dial included.
const publishTimeout = 2 * time.Second

// emit publishes ev and only logs a failure.
func emit(ctx context.Context, pub Publisher, m *metrics.Metrics, log *slog.Logger, ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := pub.Publish(ctx, ev)
	m.Event(err == nil)
	if err != nil {
		log.WarnContext(ctx, "event publish failed", "type", ev.Type, "error", err)
	}
}

const amqpBufferSize = 256

// AMQPPublisher sends events to one durable RabbitMQ queue. Publish only
// enqueues; a single worker owns the lazily dialed connection, so a slow or
// dead broker never holds up a request. After a failed dial the worker stays
// quiet for redialAfter and drops what arrives meanwhile.
type AMQPPublisher struct {
	url         string
	queue       string
	redialAfter time.Duration
	log         *slog.Logger

	buf  chan Event
	quit chan struct{}
	done chan struct{}
	once sync.Once

	// worker only
	conn     *amqp.Connection
	ch       *amqp.Channel
	retryAt  time.Time
	dialFunc func(url string) (*amqp.Connection, error)
}

func NewAMQPPublisher(url, queue string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	p := &AMQPPublisher{
		url:         url,
		queue:       queue,
		redialAfter: 10 * time.Second,
		log:         log,
		buf:         make(chan Event, amqpBufferSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		dialFunc:    dialAMQP,
	}
	go p.run()
	return p
}

func dialAMQP(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(publishTimeout),
	})
}

// Publish queues ev for the worker. It fails only when the buffer is full or
// the publisher is closed.
func (p *AMQPPublisher) Publish(_ context.Context, ev Event) error {
	select {
	case <-p.quit:
		return oops.Code("EVENT_PUBLISHER_CLOSED").Errorf("publisher closed")
	default:
	}
	select {
	case p.buf <- ev:
		return nil
	default:
		return oops.Code("EVENT_QUEUE_FULL").With("type", ev.Type).Errorf("event buffer full")
	}
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	defer p.reset()
	for {
		select {
		case ev := <-p.buf:
			p.send(ev)
		case <-p.quit:
			// 退出前尽量把缓冲里的事件发完
			for {
				select {
				case ev := <-p.buf:
					p.send(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *AMQPPublisher) send(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.deliver(ctx, ev); err != nil {
		p.log.WarnContext(ctx, "event delivery failed", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

func (p *AMQPPublisher) deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return oops.Code("EVENT_ENCODE_FAILED").Wrap(err)
	}
	if err := p.ensureChannel(); err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		p.reset()
		return oops.Code("EVENT_PUBLISH_FAILED").With("type", ev.Type).Wrap(err)
	}
	return nil
}

func (p *AMQPPublisher) ensureChannel() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	if time.Now().Before(p.retryAt) {
		return oops.Code("EVENT_BROKER_UNAVAILABLE").Errorf("broker unavailable, retry after %s", p.retryAt.Format(time.RFC3339))
	}

	conn, err := p.dialFunc(p.url)
	if err != nil {
		p.retryAt = time.Now().Add(p.redialAfter)
		return oops.Code("EVENT_BROKER_UNAVAILABLE").Wrap(err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = time.Now().Add(p.redialAfter)
		return oops.Code("EVENT_BROKER_UNAVAILABLE").Wrap(err)
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = time.Now().Add(p.redialAfter)
		return oops.Code("EVENT_BROKER_UNAVAILABLE").With("queue", p.queue).Wrap(err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops accepting events, lets the worker flush the buffer and
// releases the broker connection. It waits at most ctx's deadline.
func (p *AMQPPublisher) Close(ctx context.Context) error {
	p.once.Do(func() { close(p.quit) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return oops.Code("EVENT_PUBLISHER_CLOSE_TIMEOUT").Wrap(ctx.Err())
	}
}

// RecordingPublisher keeps events in memory. Tests use it to assert on what
// was published.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *RecordingPublisher) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

// Types returns the recorded event types in publish order.
func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *RecordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
