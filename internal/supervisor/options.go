package supervisor

import (
	"time"

	"github.com/okian/karmabot/pkg/logger"
)

// Option applies a configuration option to the Supervisor.
type Option func(*Supervisor)

// WithShutdownTimeout sets the grace period tasks get once shutdown starts.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the supervisor.
func WithLogger(l logger.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}
