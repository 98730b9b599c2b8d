package repository

import "github.com/okian/karmabot/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithSink publishes every changed score to sink.
func WithSink(sink Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
