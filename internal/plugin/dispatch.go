package plugin

import (
	"context"
	"sync"
	"time"
)

// Dispatch hands lines to every loaded instance and returns their replies
// in registry order. Instances run concurrently with each other. A failing
// instance contributes no replies; its error is returned alongside and
// never stops the others.
func (r *Runtime) Dispatch(ctx context.Context, lines []string) ([]string, []error) {
	instances := r.registry.Snapshot()
	if len(instances) == 0 || len(lines) == 0 {
		return nil, nil
	}

	replies := make([][]string, len(instances))
	errs := make([]error, len(instances))

	var wg sync.WaitGroup
	for i, inst := range instances {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			replies[i], errs[i] = inst.Handle(ctx, lines)
			r.metrics.RecordPluginDuration(inst.desc.Name, time.Since(start).Seconds())
		}()
	}
	wg.Wait()

	var (
		out      []string
		failures []error
	)
	for i, inst := range instances {
		if errs[i] != nil {
			r.metrics.RecordPluginError(inst.desc.Name)
			failures = append(failures, &InstanceError{Plugin: inst.desc, Err: errs[i]})
			continue
		}
		out = append(out, replies[i]...)
	}
	return out, failures
}
