package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/karmabot/internal/karmactl"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, rest, err := karmactl.ParseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := karmactl.Run(ctx, cfg, rest, os.Stdout); err != nil {
		os.Stderr.WriteString("karmactl: " + err.Error() + "\n")
		if errors.Is(err, karmactl.ErrUsage) {
			karmactl.Usage(os.Stderr)
			return 2
		}
		return 1
	}
	return 0
}
