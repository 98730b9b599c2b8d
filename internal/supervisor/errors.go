package supervisor

import "errors"

// Sentinel kinds for supervision faults.
var (
	ErrUnexpectedExit  = errors.New("task exited before shutdown was requested")
	ErrShutdownTimeout = errors.New("tasks did not stop within the shutdown timeout")
	ErrNoTasks         = errors.New("no tasks to supervise")
	ErrDuplicateTask   = errors.New("task already registered")
	ErrAlreadyRunning  = errors.New("supervisor already running")
)
