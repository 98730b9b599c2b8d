// Package service wires the score store, plugin runtime, IRC listener, admin
// RPC and HTTP servers together and runs them under one supervisor.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/karmabot/internal/adapters/http/api"
	"github.com/okian/karmabot/internal/adapters/irc"
	eventqueue "github.com/okian/karmabot/internal/adapters/mq/queue"
	"github.com/okian/karmabot/internal/adapters/mq/worker"
	repository "github.com/okian/karmabot/internal/adapters/repository"
	"github.com/okian/karmabot/internal/adapters/rpc/admin"
	"github.com/okian/karmabot/internal/config"
	"github.com/okian/karmabot/internal/domain/chat"
	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/internal/plugin"
	"github.com/okian/karmabot/internal/supervisor"
	"github.com/okian/karmabot/pkg/logger"
	"github.com/okian/karmabot/pkg/metrics"
)

// Service owns every long-lived component of the bot.
type Service struct {
	cfg     *config.Config
	name    string
	version string
	opts    options

	metrics    *metrics.Manager
	store      *repository.Store
	plugins    *plugin.Runtime
	queue      *eventqueue.InMemoryQueue
	irc        *irc.Client
	worker     *worker.Worker
	admin      *admin.Server
	http       *api.Server
	supervisor *supervisor.Supervisor

	startedAt time.Time
	root      logger.Logger
	logger    logger.Logger
}

// New builds every component from cfg. Nothing touches the network until Run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		name:    "karmabot",
		version: "dev",
		root:    logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.root.Named("service")
	if s.metrics == nil {
		s.metrics = metrics.NewManager(metrics.WithRuntimeCollectors())
	}

	s.store = repository.New(ctx, cfg.KarmaFile,
		repository.WithSink(s.metrics),
		repository.WithLogger(s.root.Named("karma")),
	)

	s.plugins = plugin.NewRuntime(cfg.PluginDir,
		plugin.WithDebounce(cfg.PluginDebounce),
		plugin.WithCallTimeout(cfg.PluginCallTimeout),
		plugin.WithMaxStringSize(cfg.PluginMaxString),
		plugin.WithMetrics(s.metrics),
		plugin.WithHostFunc("karma", s.hostKarma),
		plugin.WithLogger(s.root.Named("plugins")),
	)

	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(cfg.QueueSize),
		eventqueue.WithMetrics(s.metrics),
	)

	if cfg.IRCServer != "" {
		s.irc = irc.New(irc.Config{
			Server:    cfg.IRCServer,
			TLS:       cfg.IRCTLS,
			Nick:      cfg.IRCNick,
			Channel:   cfg.IRCChannel,
			SendRate:  cfg.IRCSendRate,
			SendBurst: cfg.IRCSendBurst,
		}, s.queue, append([]irc.Option{
			irc.WithMetrics(s.metrics),
			irc.WithLogger(s.root.Named("irc")),
		}, s.opts.irc...)...)

		bot := chat.NewBot(s.store, s.plugins, s.irc,
			chat.WithAdmins(cfg.Admins()...),
			chat.WithMetrics(s.metrics),
			chat.WithLogger(s.root.Named("chat")),
		)
		s.worker = worker.New(s.queue, bot,
			worker.WithName("chat"),
			worker.WithMetrics(s.metrics),
			worker.WithLogger(s.root.Named("worker")),
		)
	}

	s.admin = admin.NewServer(cfg.AdminAddr, s.store, s.plugins,
		append([]admin.Option{admin.WithLogger(s.root.Named("admin"))}, s.opts.admin...)...)

	s.http = api.NewServer(cfg.HTTPAddr, s, append([]api.Option{
		api.WithBuild(s.name, s.version),
		api.WithMetricsHandler(s.metrics.Handler()),
		api.WithRequestRecorder(s.metrics),
		api.WithLogger(s.root.Named("http")),
	}, s.opts.http...)...)

	s.supervisor = supervisor.New(
		supervisor.WithShutdownTimeout(cfg.ShutdownTimeout),
		supervisor.WithLogger(s.root.Named("supervisor")),
	)
	return s
}

// Run loads the initial plugins and runs every task until ctx is done or
// one of them fails. Plugins are closed before it returns.
func (s *Service) Run(ctx context.Context) error {
	s.startedAt = time.Now()
	s.logger.Info(ctx, "starting",
		logger.String("name", s.name),
		logger.String("version", s.version),
		logger.Int("terms", s.store.Len()),
		logger.Any("persistent", s.store.Persistent()),
	)

	s.plugins.LoadInitial(ctx)
	defer func() {
		if err := s.plugins.Close(); err != nil {
			s.logger.Warn(ctx, "closing plugins", logger.Error(err))
		}
	}()
	defer s.closeQueue(ctx)

	tasks := []supervisor.Task{
		{Name: "plugins", Run: s.plugins.Watch},
		{Name: "admin", Run: s.admin.Run},
		{Name: "http", Run: s.http.Run},
	}
	if s.irc != nil {
		tasks = append(tasks,
			supervisor.Task{Name: "irc", Run: s.listen},
			supervisor.Task{Name: "worker", Run: s.worker.Run},
		)
	} else {
		s.logger.Info(ctx, "no IRC server configured, listener disabled")
	}
	for _, t := range tasks {
		if err := s.supervisor.Add(t.Name, t.Run); err != nil {
			return fmt.Errorf("service: %w", err)
		}
	}

	err := s.supervisor.Run(ctx)
	if err != nil {
		s.logger.Error(ctx, "stopped with error", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "stopped")
	return nil
}

// listen runs the IRC client. It is the queue's only producer, so after a
// clean stop the queue is closed and the worker drains what is left. A failed
// client leaves the queue open so the supervisor reports its error, not the
// worker's early exit.
func (s *Service) listen(ctx context.Context) error {
	if err := s.irc.Run(ctx); err != nil {
		return err
	}
	s.closeQueue(ctx)
	return nil
}

func (s *Service) closeQueue(ctx context.Context) {
	if err := s.queue.Close(); err != nil {
		s.logger.Warn(ctx, "closing queue", logger.Error(err))
	}
}

// Entries returns every score, highest first.
func (s *Service) Entries() []types.Entry {
	return s.store.Entries()
}

// Get returns the score of term.
func (s *Service) Get(term string) int64 {
	return s.store.Get(term)
}

// Descriptors returns the loaded plugins.
func (s *Service) Descriptors() []plugin.Descriptor {
	return s.plugins.Descriptors()
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]any {
	tasks := make(map[string]string)
	for name, st := range s.supervisor.States() {
		tasks[name] = st.String()
	}

	stats := map[string]any{
		"name":           s.name,
		"version":        s.version,
		"terms":          s.store.Len(),
		"persistent":     s.store.Persistent(),
		"plugins":        len(s.plugins.Descriptors()),
		"queue_length":   s.queue.Len(),
		"queue_capacity": s.queue.Capacity(),
		"queue_closed":   s.queue.IsClosed(),
		"tasks":          tasks,
	}
	if !s.startedAt.IsZero() {
		stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	if s.irc != nil {
		stats["nick"] = s.irc.Nick()
	}
	return stats
}

// Store exposes the score store.
func (s *Service) Store() *repository.Store {
	return s.store
}

// hostKarma lets plugins read scores: host.karma(term).
func (s *Service) hostKarma(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("karma takes one term, got %d arguments", len(args))
	}
	return strconv.FormatInt(s.store.Get(args[0]), 10), nil
}
