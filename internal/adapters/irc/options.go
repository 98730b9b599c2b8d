package irc

import (
	"context"
	"net"
	"time"

	"github.com/okian/karmabot/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the TCP/TLS dialer, mainly for tests.
func WithDialer(dial func(ctx context.Context) (net.Conn, error)) Option {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// WithMetrics sets the protocol metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp received messages.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
