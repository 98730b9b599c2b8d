package api

import (
	"net"
	"net/http"

	"github.com/okian/karmabot/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithBuild sets the name and version reported by /healthz.
func WithBuild(name, version string) Option {
	return func(s *Server) {
		if name != "" {
			s.name = name
		}
		if version != "" {
			s.version = version
		}
	}
}

// WithMetricsHandler serves h under /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRequestRecorder records per-request metrics.
func WithRequestRecorder(rec RequestRecorder) Option {
	return func(s *Server) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithMaxLimit caps the limit query parameter of /karma.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithListener serves on an existing listener instead of binding the address.
func WithListener(l net.Listener) Option {
	return func(s *Server) {
		if l != nil {
			s.listener = l
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
