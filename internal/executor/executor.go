// Package executor runs an execution plan on a bounded worker pool.
//
// A single scheduling loop owns all step state. It dispatches ready steps to
// workers, records their results, unlocks dependents on success and skips
// them, transitively, on failure. Independent branches keep running after a
// failure; the plan as a whole fails if any step did not succeed.
package executor

import (
	"context"
	"time"

	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Lookup finds the executor for a task kind.
type Lookup interface {
	Executor(kind task.Kind) (registry.Executor, bool)
}

// DefaultStopGrace is how long Run waits for running tasks to return once the
// plan is stopped.
const DefaultStopGrace = 5 * time.Second

// Executor orchestrates the execution of plans.
type Executor struct {
	lookup     Lookup
	numWorkers int
	timeout    time.Duration
	stopGrace  time.Duration
}

// New creates an Executor. A non-positive worker count means one worker; a
// non-positive timeout disables the plan deadline.
func New(lookup Lookup, numWorkers int, timeout time.Duration) *Executor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Executor{lookup: lookup, numWorkers: numWorkers, timeout: timeout, stopGrace: DefaultStopGrace}
}

// outcome is what a worker hands back to the scheduling loop.
type outcome struct {
	index  int
	result *task.Result
	err    error
	took   time.Duration
}

// compile-time check that the registry satisfies Lookup.
var _ Lookup = (*registry.Registry)(nil)

// run executes one spec, converting a panic into a step error.
func (e *Executor) run(ctx context.Context, spec *task.Spec) (res *task.Result, err error) {
	exec, ok := e.lookup.Executor(spec.ID.Kind)
	if !ok {
		return nil, task.Configf("no executor registered for kind %q", spec.ID.Kind)
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, panicError{value: r}
		}
	}()
	res = exec.Execute(ctx, spec)
	if res == nil {
		res = task.NewResult()
	}
	return res, nil
}

type panicError struct{ value any }

func (p panicError) Error() string { return "executor panicked: " + formatAny(p.value) }
