package karmactl

import (
	"flag"
	"io"
	"os"
)

const usage = `karmactl talks to a running karmabot.

Usage:
  karmactl [options] <command> [args]

Commands:
  set <term> <value>   overwrite the score of term (admin)
  list                 list loaded plugins (admin)
  get <term>           show the score of term
  top [n]              show the n highest scores (default 10)
  health               check the HTTP endpoint

Options:
  -admin string
        admin gRPC address (env KARMACTL_ADMIN, default "[::1]:50051")
  -url string
        HTTP API base URL (env KARMACTL_URL, default "http://127.0.0.1:8080")
  -timeout duration
        per-call timeout (default 10s)
  -verbose
        log every call
`

// Usage writes the command help to w.
func Usage(w io.Writer) {
	_, _ = io.WriteString(w, usage)
}

// ParseFlags reads options from args, falling back to the environment.
// It returns the config and the remaining command words.
func ParseFlags(args []string, stderr io.Writer) (*Config, []string, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("karmactl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { Usage(stderr) }
	fs.StringVar(&cfg.AdminAddr, "admin", envOr(envAdminAddr, DefaultAdminAddr), "admin gRPC address")
	fs.StringVar(&cfg.BaseURL, "url", envOr(envBaseURL, DefaultBaseURL), "HTTP API base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "per-call timeout")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "log every call")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
