package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call runs past its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotFunction is returned when a called global is missing or not a function.
	ErrNotFunction = errors.New("lua global is not a function")

	// ErrStringTooLarge is returned when a call tries to build a string
	// above the state's limit.
	ErrStringTooLarge = errors.New("lua string too large")

	// ErrCompile is returned when source does not parse or compile.
	ErrCompile = errors.New("lua compile failed")
)
