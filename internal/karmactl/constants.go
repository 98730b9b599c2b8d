package karmactl

import "time"

// Defaults used when neither a flag nor the environment sets a value.
const (
	DefaultAdminAddr = "[::1]:50051"
	DefaultBaseURL   = "http://127.0.0.1:8080"
	DefaultTimeout   = 10 * time.Second
	DefaultTop       = 10

	envAdminAddr = "KARMACTL_ADMIN"
	envBaseURL   = "KARMACTL_URL"
)
