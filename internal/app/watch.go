package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/livereload"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/watch"
)

// Watch runs name once and then rebuilds the affected tasks whenever a
// watched source changes, until ctx is done. Failed cycles, including the
// initial run, are logged and the session continues.
func (a *App) Watch(ctx context.Context, name string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	settings := a.model.Settings

	plan, err := dag.Build(ctx, a.registry, name)
	if err != nil {
		return err
	}
	set, err := a.watchSet(ctx, plan)
	if err != nil {
		return err
	}

	if _, err := a.execute(ctx, plan); err != nil {
		a.logger.Warn("Initial build failed, watching anyway.", "error", err)
	}

	var notifier watch.Notifier
	if a.model.LiveReload != nil {
		lr, err := livereload.New(*a.model.LiveReload, settings.OutputRoot)
		if err != nil {
			return &task.ConfigError{Msg: "livereload", Err: err}
		}
		defer lr.Close()
		notifier = lr
	}

	source, err := watch.NewSource(ctx, set.Roots(), func(p string) bool {
		return fsutil.Within(settings.OutputRoot, p)
	})
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	w := watch.New(set, a.rebuild, settings.Debounce, notifier)

	if settings.HealthcheckPort > 0 {
		srv := a.startHealthcheckServer(settings.HealthcheckPort, w)
		defer a.closeHealthcheckServer(ctx, srv)
	}

	go func() {
		if err := source.Run(ctx); err != nil {
			a.logger.Error("File watcher stopped.", "error", err)
		}
	}()

	a.logger.Info("👀 Watching for changes.", "roots", set.Roots(), "entries", len(set.Entries()), "debounce", settings.Debounce)
	err = w.Serve(ctx, source.Events())
	a.logger.Info("Watch session ended.", "cycles", w.Cycles())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// rebuild is the watch.RunFunc: plan only the named tasks and run them.
func (a *App) rebuild(ctx context.Context, names []string) ([]string, error) {
	plan, err := dag.Build(ctx, a.registry, names...)
	if err != nil {
		return nil, err
	}
	report, err := a.execute(ctx, plan)
	return report.Written(), err
}

// watchSet combines the configured watch entries with entries derived for
// the plan's steps that no configured entry covers.
func (a *App) watchSet(ctx context.Context, plan *dag.Plan) (*watch.Set, error) {
	covered := make(map[task.ID]bool)
	var entries []watch.Entry
	for _, w := range a.model.Watches {
		p, err := dag.Build(ctx, a.registry, w.Tasks...)
		if err != nil {
			return nil, &task.ConfigError{Msg: fmt.Sprintf("watch %q", w.Name), Err: err}
		}
		for _, id := range p.IDs() {
			covered[id] = true
		}
		entries = append(entries, watch.Entry{Name: w.Name, Patterns: w.Files, Tasks: w.Tasks})
	}
	entries = append(entries, watch.Derive(plan.Steps, covered, a.model.Settings.OutputRoot)...)
	return watch.NewSet(a.model.Settings.OutputRoot, entries...), nil
}
