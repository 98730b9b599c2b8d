package admin

import "errors"

var (
	// ErrListen wraps failures to bind the admin address.
	ErrListen = errors.New("admin: listen failed")
	// ErrCodec wraps malformed or unsupported messages.
	ErrCodec = errors.New("admin: codec")
)
