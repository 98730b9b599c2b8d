package karmactl

import (
	"time"

	"google.golang.org/grpc"
)

// Config holds the endpoints and limits of one karmactl invocation.
type Config struct {
	AdminAddr string        // admin gRPC target
	BaseURL   string        // base URL of the HTTP API
	Timeout   time.Duration // per-call timeout
	Verbose   bool          // log every call

	// DialOptions are appended when dialing the admin server.
	DialOptions []grpc.DialOption
}

// Health is the body of GET /healthz.
type Health struct {
	Health  string `json:"health"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
