package admin

import (
	"net"

	"github.com/okian/karmabot/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

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
