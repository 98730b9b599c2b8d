// Package supervisor runs the bot's long-lived tasks and coordinates their shutdown.
//
// Every task gets the same context. The first task to exit on its own, or
// cancellation of the parent context, cancels that context for all of them.
// Tasks then have a bounded grace period to return.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/karmabot/pkg/logger"
)

// DefaultShutdownTimeout is the grace period used when none is configured.
const DefaultShutdownTimeout = 5 * time.Second

// Task is a long-running unit of work. Run must return once ctx is done.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor starts tasks together and stops them together.
type Supervisor struct {
	shutdownTimeout time.Duration
	logger          logger.Logger

	mu      sync.Mutex
	tasks   []Task
	states  map[string]State
	running bool
}

// New creates an empty supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          logger.Get().Named("supervisor"),
		states:          make(map[string]State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a task. Names must be unique.
func (s *Supervisor) Add(name string, run func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if _, ok := s.states[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	s.tasks = append(s.tasks, Task{Name: name, Run: run})
	s.states[name] = Starting
	return nil
}

// Run starts every task and blocks until all of them have returned or the
// shutdown grace period has run out. It returns nil only when shutdown was
// requested through ctx and every task stopped cleanly.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return ErrNoTasks
	}
	s.running = true
	tasks := append([]Task(nil), s.tasks...)
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error {
			return s.runTask(gctx, t)
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-gctx.Done():
	}

	s.logger.Info(ctx, "shutdown requested",
		logger.Any("cause", context.Cause(gctx)),
		logger.Duration("grace", s.shutdownTimeout),
	)
	s.markStopping()

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err == nil {
			s.logger.Info(ctx, "all tasks stopped")
		}
		return err
	case <-timer.C:
		stuck := s.unfinished()
		s.logger.Error(ctx, "tasks did not stop in time", logger.Strings("tasks", stuck))
		return fmt.Errorf("%w: %s", ErrShutdownTimeout, strings.Join(stuck, ", "))
	}
}

func (s *Supervisor) runTask(ctx context.Context, t Task) error {
	s.markRunning(t.Name)
	s.logger.Info(ctx, "task started", logger.String("task", t.Name))

	err := runSafely(t.Name, func() error { return t.Run(ctx) })

	switch {
	case ctx.Err() == nil:
		// nobody asked this task to stop
		if err == nil {
			err = fmt.Errorf("%s: %w", t.Name, ErrUnexpectedExit)
		} else {
			err = fmt.Errorf("%w: %w", ErrUnexpectedExit, err)
		}
	case err != nil && errors.Is(err, context.Canceled):
		err = nil
	}

	if err != nil {
		s.setState(t.Name, Failed)
		s.logger.Error(ctx, "task failed", logger.String("task", t.Name), logger.Error(err))
		return err
	}

	s.setState(t.Name, Stopped)
	s.logger.Info(ctx, "task stopped", logger.String("task", t.Name))
	return nil
}

// States returns a copy of every task's current state.
func (s *Supervisor) States() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]State, len(s.states))
	for name, st := range s.states {
		out[name] = st
	}
	return out
}

func (s *Supervisor) setState(name string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name] = st
}

// markRunning leaves a task alone if shutdown already moved it to Stopping.
func (s *Supervisor) markRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[name] == Starting {
		s.states[name] = Running
	}
}

func (s *Supervisor) markStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, st := range s.states {
		if st == Starting || st == Running {
			s.states[name] = Stopping
		}
	}
}

func (s *Supervisor) unfinished() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, st := range s.states {
		if st != Stopped && st != Failed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
