// Package queue buffers received chat messages between the network reader and
// the worker that applies them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/karmabot/internal/domain/model"
)

const defaultQueueCapacity = 1024

// Message is the payload type flowing through the queue.
type Message = model.Message

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a message. It returns false when the queue is full or closed.
	Enqueue(ctx context.Context, m Message) bool

	// Dequeue returns a channel that receives messages in arrival order.
	// The channel is closed when the queue is closed or ctx is done.
	Dequeue(ctx context.Context) <-chan Message

	// Len returns the current number of queued messages.
	Len() int

	// Close stops accepting messages. Messages already queued can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// Metrics receives queue gauges and counters.
type Metrics interface {
	UpdateQueueSize(size int)
	UpdateQueueCapacity(capacity int)
	RecordQueueEnqueue()
	RecordQueueDequeue()
	RecordQueueEnqueueError()
}

type nopMetrics struct{}

func (nopMetrics) UpdateQueueSize(int)      {}
func (nopMetrics) UpdateQueueCapacity(int)  {}
func (nopMetrics) RecordQueueEnqueue()      {}
func (nopMetrics) RecordQueueDequeue()      {}
func (nopMetrics) RecordQueueEnqueueError() {}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int
	metrics  Metrics

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		metrics:  nopMetrics{},
	}

	for _, opt := range opts {
		opt(q)
	}

	q.messages = make(chan Message, q.capacity)

	q.metrics.UpdateQueueCapacity(q.capacity)
	q.metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a message to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Message) bool { //nolint:gocritic // hugeParam: Message is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		q.metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.messages <- m:
		q.metrics.RecordQueueEnqueue()
		q.metrics.UpdateQueueSize(len(q.messages))
		return true
	default:
		q.metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel that will receive messages as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-q.messages:
				if !ok {
					return
				}
				select {
				case out <- m:
					q.metrics.RecordQueueDequeue()
					q.metrics.UpdateQueueSize(len(q.messages))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued messages.
func (q *InMemoryQueue) Len() int {
	return len(q.messages)
}

// Capacity returns the maximum number of queued messages.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.messages)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
