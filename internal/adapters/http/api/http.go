// Package api serves the bot's read-only HTTP surface: health, metrics,
// scores, plugins and runtime stats.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/pkg/logger"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second

	defaultMaxLimit = 1000
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	KarmaReader
	PluginLister
	StatsProvider
}

// Entry mirrors the read shape returned by score queries.
type Entry = types.Entry

// Server wires HTTP routes for the bot.
type Server struct {
	addr     string
	listener net.Listener
	name     string
	version  string
	maxLimit int
	metrics  http.Handler
	recorder RequestRecorder
	logger   logger.Logger

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	karmaHandler   *KarmaHandler
	pluginsHandler *PluginsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(addr string, deps Dependencies, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		name:     "karmabot",
		version:  "dev",
		maxLimit: defaultMaxLimit,
		recorder: nopRecorder{},
		logger:   logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler(s.name, s.version)
	s.statsHandler = NewStatsHandler(deps)
	s.karmaHandler = NewKarmaHandler(deps, s.maxLimit)
	s.pluginsHandler = NewPluginsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.recorder, s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.recorder, s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/karma", MetricsMiddleware(s.recorder, s.karmaHandler.HandleList, "karma"))
	mux.HandleFunc("/karma/", MetricsMiddleware(s.recorder, s.karmaHandler.HandleTerm, "karma_term"))
	mux.HandleFunc("/plugins", MetricsMiddleware(s.recorder, s.pluginsHandler.HandleList, "plugins"))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis := s.listener
	if lis == nil {
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, "tcp", s.addr)
		if err != nil {
			return fmt.Errorf("%w: listen %s: %w", ErrServe, s.addr, err)
		}
		lis = l
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting HTTP server", logger.String("addr", lis.Addr().String()))
		errc <- srv.Serve(lis)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("%w: %w", ErrServe, err)
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: shutdown: %w", ErrServe, err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	s.logger.Info(ctx, "HTTP server stopped")
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
