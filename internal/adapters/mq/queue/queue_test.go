package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/karmabot/internal/domain/model"
)

type countingMetrics struct {
	mu            sync.Mutex
	size          int
	capacity      int
	enqueued      int
	dequeued      int
	enqueueErrors int
}

func (m *countingMetrics) UpdateQueueSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = n
}

func (m *countingMetrics) UpdateQueueCapacity(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = n
}

func (m *countingMetrics) RecordQueueEnqueue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued++
}

func (m *countingMetrics) RecordQueueDequeue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dequeued++
}

func (m *countingMetrics) RecordQueueEnqueueError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueueErrors++
}

func line(text string) model.Message {
	return model.NewMessage("alice", "#karma", text, time.Now())
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	m := &countingMetrics{}
	q := NewInMemoryQueue(WithCapacity(2), WithMetrics(m))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if m.capacity != 2 {
		t.Errorf("expected capacity gauge 2, got %d", m.capacity)
	}

	if !q.Enqueue(ctx, line("bacon++")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Text != "bacon++" {
		t.Errorf("expected bacon++, got %q", got.Text)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	m := &countingMetrics{}
	q := NewInMemoryQueue(WithCapacity(2), WithMetrics(m))
	ctx := context.Background()

	for _, text := range []string{"one", "two"} {
		if !q.Enqueue(ctx, line(text)) {
			t.Errorf("expected enqueue of %q to succeed", text)
		}
	}
	if q.Enqueue(ctx, line("three")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if m.enqueued != 2 || m.enqueueErrors != 1 {
		t.Errorf("expected 2 enqueues and 1 error, got %d and %d", m.enqueued, m.enqueueErrors)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 50; i++ {
		if !q.Enqueue(ctx, line(fmt.Sprintf("line %d", i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	i := 0
	for got := range q.Dequeue(ctx) {
		if want := fmt.Sprintf("line %d", i); got.Text != want {
			t.Fatalf("message %d: got %q, want %q", i, got.Text, want)
		}
		i++
	}
	if i != 50 {
		t.Errorf("expected 50 messages after close, got %d", i)
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 10, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, line(fmt.Sprintf("%d-%d", id, j))) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}

	out := q.Dequeue(ctx)
	seen := 0
	done := make(chan struct{})
	go func() {
		for range out {
			seen++
			if seen == producers*perProducer {
				close(done)
				return
			}
		}
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not receive every message")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, line("before close")) {
		t.Error("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, line("after close")) {
		t.Error("expected enqueue to fail after closing")
	}

	var texts []string
	timeout := time.After(time.Second)
	out := q.Dequeue(ctx)
	for {
		select {
		case m, ok := <-out:
			if !ok {
				if len(texts) != 1 || texts[0] != "before close" {
					t.Errorf("expected the queued message to drain, got %v", texts)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			texts = append(texts, m.Text)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}

func TestInMemoryQueue_DequeueStopsOnCancel(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	out := q.Dequeue(ctx)
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected no message after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue channel not closed after cancel")
	}
}
