package plugin

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settled is a path that has been quiet for the debounce window, with every
// operation seen on it during that window.
type settled struct {
	path string
	ops  fsnotify.Op
}

type pendingEvent struct {
	timer *time.Timer
	ops   fsnotify.Op
}

// debouncer coalesces bursts of events per path into one settled event.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	out     chan settled
	closed  bool
	closeCh chan struct{}
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		out:     make(chan settled, 16),
		closeCh: make(chan struct{}),
	}
}

// add records op for path and restarts its quiet period.
func (d *debouncer) add(path string, op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, ok := d.pending[path]; ok {
		p.ops |= op
		p.timer.Reset(d.delay)
		return
	}

	d.pending[path] = &pendingEvent{
		ops:   op,
		timer: time.AfterFunc(d.delay, func() { d.fire(path) }),
	}
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	ev := settled{path: path, ops: p.ops}
	d.mu.Unlock()

	select {
	case d.out <- ev:
	case <-d.closeCh:
	}
}

// events delivers settled paths.
func (d *debouncer) events() <-chan settled {
	return d.out
}

// close stops pending timers; events still waiting are dropped.
func (d *debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.closeCh)
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

// pendingCount returns the number of paths still settling.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
