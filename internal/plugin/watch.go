package plugin

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/karmabot/pkg/logger"
)

// Watch loads plugin files created in the directory after they settle.
// Only creation is acted on; changes to loaded files are ignored. It
// returns nil when ctx is cancelled. Without a directory it only waits.
func (r *Runtime) Watch(ctx context.Context) error {
	if r.dir == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}
	defer w.Close()

	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWatch, r.dir, err)
	}

	deb := newDebouncer(r.debounce)
	defer deb.close()

	// Files created between the initial scan and Add produced no event.
	caught := r.scan(ctx)

	r.logger.Info(ctx, "watching plugin directory",
		logger.String("dir", r.dir),
		logger.Duration("debounce", r.debounce),
		logger.Int("caught_up", caught),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "plugin watcher stopping", logger.Int("pending", deb.pendingCount()))
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("%w: event channel closed", ErrWatch)
			}
			if r.matches(ev.Name) {
				deb.add(ev.Name, ev.Op)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("%w: error channel closed", ErrWatch)
			}
			r.logger.Warn(ctx, "plugin watcher error", logger.Error(err))

		case s := <-deb.events():
			if !s.ops.Has(fsnotify.Create) {
				r.logger.Debug(ctx, "ignoring change to existing file",
					logger.String("path", s.path), logger.String("ops", s.ops.String()))
				continue
			}
			r.load(ctx, s.path)
		}
	}
}
