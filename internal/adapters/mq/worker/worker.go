// Package worker applies queued chat messages one at a time.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/karmabot/internal/domain/model"
	"github.com/okian/karmabot/pkg/logger"
)

// Message abstracts what workers read off the queue.
type Message = model.Message

// Processor handles one message.
type Processor interface {
	Process(ctx context.Context, m Message) error
}

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Message
}

// Metrics receives worker latency and error counts.
type Metrics interface {
	RecordWorkerProcessingLatency(seconds float64)
	RecordWorkerError()
}

type nopMetrics struct{}

func (nopMetrics) RecordWorkerProcessingLatency(float64) {}
func (nopMetrics) RecordWorkerError()                    {}

// Worker processes messages in the order they were queued. A single worker per
// queue keeps votes and plugin calls in arrival order.
type Worker struct {
	queue     Queue
	processor Processor
	name      string
	metrics   Metrics
	logger    logger.Logger
}

// New creates a worker reading from queue.
func New(queue Queue, processor Processor, opts ...Option) *Worker {
	w := &Worker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		metrics:   nopMetrics{},
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run processes messages until ctx is done or the queue is closed and drained.
// Failures of individual messages are logged and do not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "worker started", logger.String("name", w.name))
	defer w.logger.Info(ctx, "worker stopped", logger.String("name", w.name))

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-messages:
			if !ok {
				w.logger.Info(ctx, "queue closed and drained", logger.String("name", w.name))
				return nil
			}
			if err := w.process(ctx, m); err != nil {
				w.logger.Error(ctx, "error processing message",
					logger.String("message_id", m.ID.String()),
					logger.String("nick", m.Nick),
					logger.Error(err),
				)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, m Message) (err error) { //nolint:gocritic // hugeParam: Message is passed by value for channel semantics
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered: %v", r)
		}
		w.metrics.RecordWorkerProcessingLatency(time.Since(start).Seconds())
		if err != nil {
			w.metrics.RecordWorkerError()
		}
	}()

	return w.processor.Process(ctx, m)
}
