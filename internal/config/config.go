// Package config defines the bot configuration and how it is loaded.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Load(ctx) layers a YAML file and KARMABOT_* environment variables on top.
//   - Keys are flat and match the koanf tags below.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// IRCServer is the host:port of the IRC server. Empty disables the listener.
	IRCServer string `koanf:"irc_server"`
	// IRCTLS dials the server over TLS.
	IRCTLS bool `koanf:"irc_tls"`
	// IRCNick is the nickname the bot registers with.
	IRCNick string `koanf:"irc_nick"`
	// IRCChannel is the single channel the bot joins.
	IRCChannel string `koanf:"irc_channel"`
	// IRCAdmins is a comma-separated list of nicks allowed to set scores in chat.
	IRCAdmins string `koanf:"irc_admins"`
	// IRCSendRate and IRCSendBurst bound outgoing lines per second.
	IRCSendRate  float64 `koanf:"irc_send_rate"`
	IRCSendBurst int     `koanf:"irc_send_burst"`

	// HTTPAddr serves health, metrics and the read-only API.
	HTTPAddr string `koanf:"http_addr"`
	// AdminAddr serves the admin gRPC services.
	AdminAddr string `koanf:"admin_addr"`

	// KarmaFile is the snapshot path. Empty keeps scores in memory only.
	KarmaFile string `koanf:"karma_file"`

	// PluginDir is scanned and watched for plugins. Empty disables plugins.
	PluginDir string `koanf:"plugin_dir"`
	// PluginDebounce is how long a new file must be quiet before it is loaded.
	PluginDebounce time.Duration `koanf:"plugin_debounce"`
	// PluginCallTimeout bounds one plugin invocation.
	PluginCallTimeout time.Duration `koanf:"plugin_call_timeout"`
	// PluginMaxString caps, in bytes, the strings a plugin can build in one
	// library call.
	PluginMaxString int `koanf:"plugin_max_string"`

	// QueueSize bounds the in-memory chat message queue.
	QueueSize int `koanf:"queue_size"`

	// ShutdownTimeout is the grace period every task gets to stop.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		IRCNick:           "karmabot",
		IRCChannel:        "#karma",
		IRCSendRate:       2,
		IRCSendBurst:      5,
		HTTPAddr:          "127.0.0.1:8080",
		AdminAddr:         "[::1]:50051",
		PluginDebounce:    2 * time.Second,
		PluginCallTimeout: 2 * time.Second,
		PluginMaxString:   1 << 20,
		QueueSize:         1024,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Admins returns the admin nicks, trimmed and without empties.
func (c *Config) Admins() []string {
	var out []string
	for _, nick := range strings.Split(c.IRCAdmins, ",") {
		if nick = strings.TrimSpace(nick); nick != "" {
			out = append(out, nick)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.HTTPAddr == "":
		return fmt.Errorf("%w: http_addr must not be empty", ErrInvalidConfig)
	case c.AdminAddr == "":
		return fmt.Errorf("%w: admin_addr must not be empty", ErrInvalidConfig)
	case c.IRCServer != "" && c.IRCNick == "":
		return fmt.Errorf("%w: irc_nick must not be empty", ErrInvalidConfig)
	case c.IRCServer != "" && !strings.HasPrefix(c.IRCChannel, "#") && !strings.HasPrefix(c.IRCChannel, "&"):
		return fmt.Errorf("%w: irc_channel %q is not a channel name", ErrInvalidConfig, c.IRCChannel)
	case c.IRCSendRate <= 0 || c.IRCSendBurst <= 0:
		return fmt.Errorf("%w: irc_send_rate and irc_send_burst must be positive", ErrInvalidConfig)
	case c.PluginDebounce <= 0 || c.PluginCallTimeout <= 0 || c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: durations must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.PluginMaxString <= 0:
		return fmt.Errorf("%w: plugin_max_string must be positive", ErrInvalidConfig)
	}
	return nil
}
