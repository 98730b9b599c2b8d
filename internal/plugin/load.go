package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	glua "github.com/yuin/gopher-lua"

	"github.com/google/uuid"
	"github.com/okian/karmabot/internal/plugin/lua"
	"github.com/okian/karmabot/pkg/logger"
)

// LoadInitial loads every matching file directly inside the plugin
// directory and returns how many were loaded. Failures are logged and
// skipped.
func (r *Runtime) LoadInitial(ctx context.Context) int {
	if r.dir == "" {
		r.logger.Info(ctx, "no plugin directory configured, plugins disabled")
		return 0
	}

	loaded := r.scan(ctx)
	r.logger.Info(ctx, "initial plugin scan done",
		logger.String("dir", r.dir),
		logger.Int("loaded", loaded),
		logger.Int("total", r.registry.Len()),
	)
	return loaded
}

// scan loads every matching file in the directory that is not loaded yet.
func (r *Runtime) scan(ctx context.Context) int {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.logger.Error(ctx, "can't read plugin directory", logger.String("dir", r.dir), logger.Error(err))
		return 0
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !r.matches(entry.Name()) {
			continue
		}
		if r.load(ctx, filepath.Join(r.dir, entry.Name())) {
			loaded++
		}
	}
	return loaded
}

// load compiles and instantiates path and appends it to the registry.
// It reports whether a new instance was added.
func (r *Runtime) load(ctx context.Context, path string) bool {
	if r.loaded.SeenAndRecord(ctx, path) {
		r.logger.Debug(ctx, "plugin already loaded", logger.String("path", path))
		return false
	}

	inst, err := r.instantiate(ctx, path)
	if err != nil {
		r.loaded.Unrecord(ctx, path)
		r.metrics.RecordPluginLoad(false)
		r.logger.Error(ctx, "can't load plugin", logger.String("path", path), logger.Error(err))
		return false
	}

	n := r.registry.Append(inst)
	r.metrics.RecordPluginLoad(true)
	r.metrics.SetPluginsLoaded(n)
	r.logger.Info(ctx, "plugin loaded",
		logger.String("name", inst.desc.Name),
		logger.String("path", path),
		logger.Int64("size", inst.desc.Size),
	)
	return true
}

func (r *Runtime) instantiate(ctx context.Context, path string) (*Instance, error) {
	if !r.matches(path) {
		return nil, fmt.Errorf("%w: %s", ErrExtension, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}

	proto, err := lua.CompileFile(path)
	if err != nil {
		return nil, err
	}

	name := NameFromPath(path)
	state := lua.NewState(
		lua.WithMaxStringSize(r.maxString),
		lua.WithModule("host", r.hostModule(name)),
	)

	execCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	if err := state.Exec(execCtx, proto); err != nil {
		_ = state.Close()
		return nil, fmt.Errorf("run chunk: %w", err)
	}
	if !state.HasFunction(HandlerFunc) {
		_ = state.Close()
		return nil, ErrNoHandler
	}

	return &Instance{
		desc: Descriptor{
			ID:       uuid.New(),
			Name:     name,
			Path:     path,
			Size:     info.Size(),
			LoadedAt: r.now(),
		},
		callTimeout: r.callTimeout,
		state:       state,
	}, nil
}

// hostModule builds the host table for one plugin: the configured host
// functions plus host.log, which logs under the plugin's name.
func (r *Runtime) hostModule(name string) map[string]glua.LGFunction {
	funcs := make(map[string]glua.LGFunction, len(r.hostFuncs)+1)
	for fname, fn := range r.hostFuncs {
		funcs[fname] = lua.StringFunc(fn, r.maxString)
	}

	funcs["log"] = lua.StringFunc(func(args []string) (string, error) {
		r.logger.Info(context.Background(), strings.Join(args, " "), logger.String("plugin", name))
		return "", nil
	}, r.maxString)
	return funcs
}

func (r *Runtime) matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}
