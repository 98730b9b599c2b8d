package karmactl

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/karmabot/internal/adapters/rpc/admin"
	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/pkg/logger"
)

// Run executes the command in args and writes its result to out.
func Run(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}

	if cfg.Verbose {
		logger.Get().Info(ctx, "running command",
			logger.Strings("args", args),
			logger.String("admin", cfg.AdminAddr),
			logger.String("url", cfg.BaseURL))
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "set":
		return runSet(ctx, cfg, rest, out)
	case "list":
		return runList(ctx, cfg, rest, out)
	case "get":
		return runGet(ctx, cfg, rest, out)
	case "top":
		return runTop(ctx, cfg, rest, out)
	case "health":
		return runHealth(ctx, cfg, rest, out)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func runSet(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: set <term> <value>", ErrUsage)
	}
	term := args[0]
	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: value %q is not an integer", ErrUsage, args[1])
	}

	client, err := admin.Dial(cfg.AdminAddr, cfg.DialOptions...)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	old, err := client.Set(ctx, term, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", term, err)
	}
	_, err = fmt.Fprintf(out, "%s: %d -> %d\n", term, old, value)
	return err
}

func runList(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: list takes no arguments", ErrUsage)
	}

	client, err := admin.Dial(cfg.AdminAddr, cfg.DialOptions...)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	plugins, err := client.List(ctx)
	if err != nil {
		return fmt.Errorf("list plugins: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tLOADED\tPATH")
	for _, p := range plugins {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Name, p.Size, p.LoadTime.Format(time.RFC3339), p.Path)
	}
	return tw.Flush()
}

func runGet(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: get <term>", ErrUsage)
	}

	var entry types.Entry
	u := baseURL(cfg) + "/karma/" + url.PathEscape(args[0])
	if err := newHTTPClient(cfg.Timeout).GetJSON(ctx, u, &entry); err != nil {
		return fmt.Errorf("get %s: %w", args[0], err)
	}
	_, err := fmt.Fprintln(out, entry.String())
	return err
}

func runTop(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	n := DefaultTop
	switch len(args) {
	case 0:
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("%w: top [n] needs a positive number", ErrUsage)
		}
		n = v
	default:
		return fmt.Errorf("%w: top [n]", ErrUsage)
	}

	var entries []types.Entry
	u := baseURL(cfg) + "/karma?limit=" + strconv.Itoa(n)
	if err := newHTTPClient(cfg.Timeout).GetJSON(ctx, u, &entries); err != nil {
		return fmt.Errorf("top: %w", err)
	}
	for i, e := range entries {
		if _, err := fmt.Fprintf(out, "%d. %s\n", i+1, e.String()); err != nil {
			return err
		}
	}
	return nil
}

func runHealth(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: health takes no arguments", ErrUsage)
	}

	var h Health
	if err := newHTTPClient(cfg.Timeout).GetJSON(ctx, baseURL(cfg)+"/healthz", &h); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	_, err := fmt.Fprintf(out, "%s %s %s\n", h.Health, h.Name, h.Version)
	return err
}

func baseURL(cfg *Config) string {
	return strings.TrimRight(cfg.BaseURL, "/")
}
