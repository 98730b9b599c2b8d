package chat

import (
	"strings"

	"github.com/okian/karmabot/pkg/logger"
)

// Option configures a Bot.
type Option func(*Bot)

// WithAdmins sets the nicks allowed to overwrite scores. Matching ignores case.
func WithAdmins(nicks ...string) Option {
	return func(b *Bot) {
		for _, n := range nicks {
			if n = strings.TrimSpace(n); n != "" {
				b.admins[strings.ToLower(n)] = struct{}{}
			}
		}
	}
}

// WithMetrics sets the chat metrics sink.
func WithMetrics(m Metrics) Option {
	return func(b *Bot) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}
