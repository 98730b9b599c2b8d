package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for a Lua state.
const (
	DefaultCallStackSize   = 120
	DefaultRegistrySize    = 1024 * 16
	DefaultRegistryMaxSize = 1024 * 128
)

// State wraps a sandboxed gopher-lua state. All methods are safe for
// concurrent use; calls into Lua run one at a time.
type State struct {
	L *lua.LState

	mu       sync.Mutex
	closed   bool
	limitHit bool

	callStackSize int
	maxString     int
	modules       map[string]map[string]lua.LGFunction
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallStackSize bounds the Lua call depth.
func WithCallStackSize(n int) StateOption {
	return func(s *State) {
		if n > 0 {
			s.callStackSize = n
		}
	}
}

// WithMaxStringSize bounds the strings the library functions may build.
func WithMaxStringSize(n int) StateOption {
	return func(s *State) {
		if n > 0 {
			s.maxString = n
		}
	}
}

// WithModule exposes funcs to Lua as a global table called name.
func WithModule(name string, funcs map[string]lua.LGFunction) StateOption {
	return func(s *State) {
		if name != "" && len(funcs) > 0 {
			s.modules[name] = funcs
		}
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		callStackSize: DefaultCallStackSize,
		maxString:     DefaultMaxStringSize,
		modules:       make(map[string]map[string]lua.LGFunction),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       s.callStackSize,
		RegistrySize:        DefaultRegistrySize,
		RegistryMaxSize:     DefaultRegistryMaxSize,
		MinimizeStackMemory: true,
	})
	openSafeLibraries(s.L)
	s.boundLibraries()

	for name, funcs := range s.modules {
		s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
	}
	return s
}

// Exec runs a compiled chunk, typically to define the plugin's globals.
func (s *State) Exec(ctx context.Context, proto *lua.FunctionProto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	stackTop := s.L.GetTop()
	defer s.L.SetTop(stackTop)

	s.L.Push(s.L.NewFunctionFromProto(proto))
	return s.pcall(ctx, 0, 0)
}

// HasFunction reports whether the global name is a function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls a global Lua function and returns its results.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(ctx context.Context, fn string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q (got %s)", ErrNotFunction, fn, fnVal.Type())
	}

	stackTop := s.L.GetTop()
	s.L.Push(fnVal)
	for _, arg := range args {
		s.L.Push(arg)
	}

	if err := s.pcall(ctx, len(args), lua.MultRet); err != nil {
		s.L.SetTop(stackTop)
		return nil, err
	}

	nRet := s.L.GetTop() - stackTop
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.SetTop(stackTop)

	return results, nil
}

// pcall must be called with mu held. The context preempts the VM when it
// is done; panics out of the VM are turned into errors.
func (s *State) pcall(ctx context.Context, nargs, nret int) (err error) {
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	s.limitHit = false

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	if err = s.L.PCall(nargs, nret, nil); err != nil {
		if s.limitHit {
			return fmt.Errorf("%w: %w", ErrStringTooLarge, err)
		}
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrExecutionTimeout, err)
		}
		return err
	}
	return nil
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
