package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"promptiq/m/v2/app/util"

	log "github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("notify: queue is full")
	ErrQueueClosed = errors.New("notify: queue is closed")
)

// Queue hands messages to a background sender, so Notify never waits on delivery.
// Each send gets its own context bounded by sendMaxElapsedTime.
type Queue struct {
	next    Notifier
	timeout time.Duration

	mu       sync.Mutex
	closed   bool
	messages chan string
	done     chan struct{}
}

func NewQueue(next Notifier, size int) *Queue {
	q := &Queue{
		next:     next,
		timeout:  sendMaxElapsedTime,
		messages: make(chan string, size),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

// Notify enqueues the message; ctx only matters to the caller and is not used for delivery.
func (q *Queue) Notify(ctx context.Context, message string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.messages <- message:
		return nil
	default:
		log.Warnf("notify: queue full, dropping %q", util.Truncate(message, 80))
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for message := range q.messages {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.next.Notify(ctx, message); err != nil {
			log.Errorf("notify: queued delivery failed: %v", err)
		}
		cancel()
	}
}

// Close stops accepting messages and waits for the backlog to drain or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.messages)
	}
	q.mu.Unlock()
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
