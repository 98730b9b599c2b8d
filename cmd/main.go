package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/karmabot/internal/app"
	"github.com/okian/karmabot/internal/config"
	"github.com/okian/karmabot/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger format isn't known yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.Init(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Named("main")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	log.Info(ctx, "starting karmabot",
		logger.String("version", version),
		logger.String("irc_server", cfg.IRCServer),
		logger.String("http_addr", cfg.HTTPAddr),
		logger.String("admin_addr", cfg.AdminAddr))

	svc := service.New(ctx, cfg, service.WithBuild("karmabot", version))
	if err := svc.Run(ctx); err != nil {
		log.Error(ctx, "karmabot stopped", logger.Error(err))
		return 1
	}

	log.Info(ctx, "karmabot stopped")
	return 0
}
