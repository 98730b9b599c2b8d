package karmactl

import "errors"

var (
	// ErrUsage reports a malformed command line.
	ErrUsage = errors.New("usage")
	// ErrStatus reports a non-2xx HTTP answer.
	ErrStatus = errors.New("unexpected status")
)
