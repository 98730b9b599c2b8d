package service

import (
	"context"
	"net"

	"github.com/okian/karmabot/internal/adapters/http/api"
	"github.com/okian/karmabot/internal/adapters/irc"
	"github.com/okian/karmabot/internal/adapters/rpc/admin"
	"github.com/okian/karmabot/pkg/logger"
	"github.com/okian/karmabot/pkg/metrics"
)

type options struct {
	irc   []irc.Option
	admin []admin.Option
	http  []api.Option
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBuild sets the name and version reported in logs and /healthz.
func WithBuild(name, version string) Option {
	return func(s *Service) {
		if name != "" {
			s.name = name
		}
		if version != "" {
			s.version = version
		}
	}
}

// WithMetrics sets the metrics manager shared by every component.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger every component derives its named logger from.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.root = l
		}
	}
}

// WithIRCDialer replaces how the IRC connection is made.
func WithIRCDialer(dial func(ctx context.Context) (net.Conn, error)) Option {
	return func(s *Service) {
		s.opts.irc = append(s.opts.irc, irc.WithDialer(dial))
	}
}

// WithAdminListener serves the admin API on l.
func WithAdminListener(l net.Listener) Option {
	return func(s *Service) {
		s.opts.admin = append(s.opts.admin, admin.WithListener(l))
	}
}

// WithHTTPListener serves HTTP on l.
func WithHTTPListener(l net.Listener) Option {
	return func(s *Service) {
		s.opts.http = append(s.opts.http, api.WithListener(l))
	}
}
