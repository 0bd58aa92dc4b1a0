package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/task"
)

// Run executes the plan and returns a report with one entry per step, in
// plan order. It respects cancellation of ctx and applies the plan timeout.
func (e *Executor) Run(ctx context.Context, plan *dag.Plan) *Report {
	logger := ctxlog.FromContext(ctx).With("plan", plan.Name)
	start := time.Now()

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	report := newReport(plan)
	n := len(plan.Steps)
	if n == 0 {
		report.Duration = time.Since(start)
		return report
	}

	index := make(map[task.ID]int, n)
	for i, s := range plan.Steps {
		index[s.ID] = i
	}
	dependents := make([][]int, n)
	remaining := make([]int, n)
	var ready []int
	for i, s := range plan.Steps {
		deps, err := plan.Graph.Dependencies(s.ID)
		if err != nil {
			logger.Error("Step missing from plan graph.", "task", s.ID.String(), "error", err)
		}
		remaining[i] = len(deps)
		for _, d := range deps {
			dependents[index[d]] = append(dependents[index[d]], i)
		}
		if remaining[i] == 0 {
			ready = append(ready, i)
		}
	}

	workers := min(e.numWorkers, n)
	jobs := make(chan job)
	outcomes := make(chan outcome, n)
	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(runCtx, jobs, outcomes, i)
	}

	// skip marks a step and all of its not-yet-finished dependents skipped.
	var skip func(i int, cause task.ID)
	skip = func(i int, cause task.ID) {
		step := report.Steps[i]
		if step.Status != Pending {
			return
		}
		logger.Warn("Skipping task due to upstream failure.", "task", step.ID.String(), "dependency", cause.String())
		step.Status = Skipped
		step.Err = fmt.Errorf("%w: upstream task %s did not succeed", task.ErrSkipped, cause)
		for _, d := range dependents[i] {
			skip(d, step.ID)
		}
	}

	running := 0
	stopped := false
	var grace <-chan time.Time
loop:
	for {
		for !stopped && len(ready) > 0 && running < workers {
			i := ready[0]
			ready = ready[1:]
			report.Steps[i].Status = Running
			running++
			jobs <- job{index: i, spec: plan.Steps[i]}
		}
		if running == 0 {
			break
		}

		var o outcome
		if stopped {
			select {
			case o = <-outcomes:
			case <-grace:
				logger.Warn("Abandoning tasks still running after the stop grace period.", "running", running, "grace", e.stopGrace)
				for _, step := range report.Steps {
					if step.Status == Running {
						step.Status = TimedOut
						step.Err = e.stopError(ctx, step.ID)
					}
				}
				break loop
			}
		} else {
			select {
			case o = <-outcomes:
			case <-runCtx.Done():
				stopped = true
				grace = time.After(e.stopGrace)
				logger.Warn("Plan stopped before completion.", "reason", runCtx.Err())
				continue
			}
		}
		running--

		step := report.Steps[o.index]
		step.Duration = o.took
		step.Result = o.result
		switch {
		case stopped:
			step.Status = TimedOut
			step.Err = e.stopError(ctx, step.ID)
		case o.err != nil:
			step.Status = Failed
			step.Err = o.err
		case o.result.Failed():
			step.Status = Failed
			step.Err = errors.Join(o.result.Errors...)
		default:
			step.Status = Succeeded
		}

		if step.Status != Succeeded {
			for _, d := range dependents[o.index] {
				skip(d, step.ID)
			}
			continue
		}
		for _, d := range dependents[o.index] {
			remaining[d]--
			if remaining[d] == 0 && report.Steps[d].Status == Pending {
				ready = insertSorted(ready, d)
			}
		}
	}
	close(jobs)

	for _, step := range report.Steps {
		if step.Status == Pending {
			step.Status = Skipped
			step.Err = fmt.Errorf("%w: plan stopped before the task started", task.ErrSkipped)
		}
	}

	report.Duration = time.Since(start)
	if report.Failed() {
		logger.Error("Plan finished with failures.", "failed", len(report.FailedIDs()), "duration", report.Duration)
	} else {
		logger.Info("✅ Plan finished.", "steps", n, "duration", report.Duration)
	}
	return report
}

// stopError explains why a step that was running when the plan stopped is
// not counted as a success.
func (e *Executor) stopError(parent context.Context, id task.ID) error {
	if parent.Err() != nil {
		return fmt.Errorf("task %s interrupted: %w", id, parent.Err())
	}
	return &task.PlanTimeoutError{ID: id, Timeout: e.timeout}
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
