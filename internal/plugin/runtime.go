// Package plugin loads sandboxed Lua plugins from a directory, watches it
// for new files, and fans chat lines out to every loaded plugin.
package plugin

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/okian/karmabot/internal/domain/dedupe"
	"github.com/okian/karmabot/internal/plugin/lua"
	"github.com/okian/karmabot/pkg/logger"
)

// Defaults for a Runtime.
const (
	Extension          = ".lua"
	DefaultDebounce    = 2 * time.Second
	DefaultCallTimeout = 2 * time.Second
)

// Metrics receives plugin activity.
type Metrics interface {
	SetPluginsLoaded(n int)
	RecordPluginLoad(ok bool)
	RecordPluginError(plugin string)
	RecordPluginDuration(plugin string, seconds float64)
}

type nopMetrics struct{}

func (nopMetrics) SetPluginsLoaded(int)                 {}
func (nopMetrics) RecordPluginLoad(bool)                {}
func (nopMetrics) RecordPluginError(string)             {}
func (nopMetrics) RecordPluginDuration(string, float64) {}

// HostFunc is a capability plugins can call as host.<name>(...).
type HostFunc func(args []string) (string, error)

// Runtime owns the registry and loads plugins into it.
// A Runtime without a directory never loads anything and its Watch only
// waits for cancellation.
type Runtime struct {
	dir         string
	debounce    time.Duration
	callTimeout time.Duration
	maxString   int
	hostFuncs   map[string]HostFunc

	registry *Registry
	loaded   dedupe.Deduper

	metrics Metrics
	logger  logger.Logger
	now     func() time.Time
}

// NewRuntime creates a runtime for dir. An empty dir disables plugins.
func NewRuntime(dir string, opts ...Option) *Runtime {
	r := &Runtime{
		dir:         dir,
		debounce:    DefaultDebounce,
		callTimeout: DefaultCallTimeout,
		maxString:   lua.DefaultMaxStringSize,
		hostFuncs:   make(map[string]HostFunc),
		registry:    &Registry{},
		loaded:      dedupe.NewInMemoryDeduper(dedupe.WithKeyFunc(absPath)),
		metrics:     nopMetrics{},
		logger:      logger.Get().Named("plugins"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the plugin directory, empty when plugins are disabled.
func (r *Runtime) Dir() string {
	return r.dir
}

// Descriptors returns the identity of every loaded plugin in load order.
func (r *Runtime) Descriptors() []Descriptor {
	instances := r.registry.Snapshot()
	out := make([]Descriptor, len(instances))
	for i, inst := range instances {
		out[i] = inst.Descriptor()
	}
	return out
}

// Close releases every plugin state. Call it after all tasks have stopped.
func (r *Runtime) Close() error {
	var errs []error
	for _, inst := range r.registry.Snapshot() {
		if err := inst.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
