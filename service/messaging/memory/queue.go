// Package memory provides a channel-backed messaging.Queue with bounded
// redelivery and an optional dead-letter buffer.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hackwire/simcore/internal/idgen"
	"github.com/hackwire/simcore/service/messaging"
)

// Config for the in-memory queue.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	DeadLetter bool
	Buffer     int
}

// DefaultConfig returns the standard in-memory queue configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		DeadLetter: true,
		Buffer:     128,
	}
}

// Message is a delivered payload; Ack and Nack settle it exactly once.
type Message[T any] struct {
	id       string
	payload  T
	queue    *Queue[T]
	attempts int
	mu       sync.Mutex
	settled  bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack marks the message as processed.  Settling a message twice is an error.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %s already settled", m.id)
	}
	m.settled = true
	return nil
}

// Nack reports a failure.  The message is redelivered after RetryDelay until
// MaxRetries is exceeded, then parked in the dead-letter buffer when one is
// configured.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %s already settled", m.id)
	}
	m.settled = true
	m.attempts++

	if m.attempts <= m.queue.config.MaxRetries {
		redelivery := &Message[T]{
			id:       m.id,
			payload:  m.payload,
			queue:    m.queue,
			attempts: m.attempts,
		}
		go m.queue.requeue(redelivery)
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.deadLetter(m)
	}
	return nil
}

// Queue is a channel-backed messaging.Queue.
type Queue[T any] struct {
	config    Config
	messages  chan *Message[T]
	dlqMu     sync.Mutex
	dlq       []*Message[T]
	closedCh  chan struct{}
	closeOnce sync.Once
}

var _ messaging.Queue[any] = (*Queue[any])(nil)

// NewQueue creates an in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Queue[T]{
		config:   config,
		messages: make(chan *Message[T], config.Buffer),
		closedCh: make(chan struct{}),
	}
}

// Publish adds a payload to the queue, blocking when the buffer is full
// until space frees up or the context ends.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{
		id:      idgen.New(),
		payload: *t,
		queue:   q,
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single message, blocking until one is available.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of buffered messages.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of dead-lettered messages.
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// Close stops pending redeliveries.  In-flight requeue goroutines park their
// messages in the dead-letter buffer when one is configured instead of
// blocking on the channel forever.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.closedCh)
	})
}

func (q *Queue[T]) requeue(msg *Message[T]) {
	timer := time.NewTimer(q.config.RetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-q.closedCh:
		q.abandon(msg)
		return
	}
	select {
	case q.messages <- msg:
	case <-q.closedCh:
		q.abandon(msg)
	}
}

func (q *Queue[T]) abandon(msg *Message[T]) {
	if q.config.DeadLetter {
		q.deadLetter(msg)
	}
}

func (q *Queue[T]) deadLetter(msg *Message[T]) {
	q.dlqMu.Lock()
	q.dlq = append(q.dlq, msg)
	q.dlqMu.Unlock()
}
