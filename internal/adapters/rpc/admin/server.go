// Package admin serves and calls the administrative gRPC API: overwriting
// scores and listing loaded plugins. Messages use the protobuf wire format,
// so any protobuf client built from admin/v1/admin.proto can call it.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/okian/karmabot/internal/plugin"
	"github.com/okian/karmabot/pkg/logger"
)

// ScoreSetter is the part of the score store the admin API writes to.
type ScoreSetter interface {
	Set(ctx context.Context, term string, value int64) int64
}

// PluginLister reports loaded plugins.
type PluginLister interface {
	Descriptors() []plugin.Descriptor
}

// Server exposes the admin services on one listener.
type Server struct {
	addr     string
	listener net.Listener
	store    ScoreSetter
	plugins  PluginLister
	logger   logger.Logger
}

// NewServer creates an admin server for addr. Nothing is bound until Run.
func NewServer(addr string, store ScoreSetter, plugins PluginLister, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		store:   store,
		plugins: plugins,
		logger:  logger.Get().Named("admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves until ctx is done, then stops gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis := s.listener
	if lis == nil {
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, "tcp", s.addr)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrListen, s.addr, err)
		}
		lis = l
	}

	srv := grpc.NewServer(
		grpc.ForceServerCodec(codec{}),
		grpc.ChainUnaryInterceptor(s.logCalls),
	)
	srv.RegisterService(&karmaServiceDesc, s)
	srv.RegisterService(&pluginServiceDesc, s)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(lis)
	}()
	s.logger.Info(ctx, "admin server listening", logger.String("addr", lis.Addr().String()))

	select {
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("admin: serve: %w", err)
	case <-ctx.Done():
		srv.GracefulStop()
		<-errc
		s.logger.Info(ctx, "admin server stopped")
		return nil
	}
}

// Set implements KarmaServer.
func (s *Server) Set(ctx context.Context, req *SetRequest) (*SetResponse, error) {
	term := strings.TrimSpace(req.Term)
	if term == "" {
		return nil, status.Error(codes.InvalidArgument, "term must not be empty")
	}
	old := s.store.Set(ctx, term, req.Value)
	s.logger.Info(ctx, "score set",
		logger.String("term", term),
		logger.Int64("old", old),
		logger.Int64("new", req.Value),
	)
	return &SetResponse{OldValue: old}, nil
}

// List implements PluginServer.
func (s *Server) List(_ context.Context, _ *ListRequest) (*ListResponse, error) {
	descs := s.plugins.Descriptors()
	out := make([]PluginInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, PluginInfo{Name: d.Name, Path: d.Path, Size: d.Size, LoadTime: d.LoadedAt})
	}
	return &ListResponse{Plugins: out}, nil
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "admin call",
		logger.String("method", info.FullMethod),
		logger.String("code", status.Code(err).String()),
		logger.Duration("took", time.Since(start)),
	)
	return resp, err
}
