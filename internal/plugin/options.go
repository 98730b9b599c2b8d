package plugin

import (
	"time"

	"github.com/okian/karmabot/pkg/logger"
)

// Option applies a configuration option to the Runtime.
type Option func(*Runtime)

// WithDebounce sets how long a new file must be quiet before loading.
func WithDebounce(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithCallTimeout bounds a single plugin invocation.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithMaxStringSize bounds the strings a plugin can build with the string
// library, table.concat and host functions.
func WithMaxStringSize(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxString = n
		}
	}
}

// WithHostFunc exposes fn to every plugin loaded afterwards as host.<name>.
func WithHostFunc(name string, fn HostFunc) Option {
	return func(r *Runtime) {
		if name != "" && fn != nil {
			r.hostFuncs[name] = fn
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Runtime) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithLogger sets a custom logger for the runtime.
func WithLogger(l logger.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the clock used for load timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}
