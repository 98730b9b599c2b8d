package irc

import "errors"

var (
	// ErrNotConnected is returned by Reply before registration or after shutdown.
	ErrNotConnected = errors.New("irc: not connected")
	// ErrDisconnected is returned by Run when the server drops the connection.
	ErrDisconnected = errors.New("irc: connection lost")
	// ErrDial wraps failures to reach the server.
	ErrDial = errors.New("irc: dial failed")
)
