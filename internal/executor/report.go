package executor

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/task"
)

// Status is the final state of one plan step.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
	Skipped
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "ok"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case TimedOut:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StepReport is the outcome of a single step.
type StepReport struct {
	ID       task.ID
	Status   Status
	Result   *task.Result
	Err      error
	Duration time.Duration
}

// Report is the outcome of a whole plan.
type Report struct {
	Plan     string
	Steps    []*StepReport
	Duration time.Duration
}

func newReport(plan *dag.Plan) *Report {
	r := &Report{Plan: plan.Name}
	for _, s := range plan.Steps {
		r.Steps = append(r.Steps, &StepReport{ID: s.ID, Status: Pending})
	}
	return r
}

// Failed reports whether any step did not succeed.
func (r *Report) Failed() bool {
	return len(r.FailedIDs()) > 0
}

// FailedIDs returns every step that did not succeed, in plan order.
func (r *Report) FailedIDs() []task.ID {
	var out []task.ID
	for _, s := range r.Steps {
		if s.Status != Succeeded {
			out = append(out, s.ID)
		}
	}
	return out
}

// Written returns every file written by the plan, in plan order.
func (r *Report) Written() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Result != nil {
			out = append(out, s.Result.Written...)
		}
	}
	return out
}

// Step returns the report for id, or nil.
func (r *Report) Step(id task.ID) *StepReport {
	for _, s := range r.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Err summarises the failures of the plan, wrapping the first root cause.
// Skipped steps are symptoms, not causes.
func (r *Report) Err() error {
	var failed []string
	var rootCause error
	for _, s := range r.Steps {
		if s.Status == Succeeded {
			continue
		}
		failed = append(failed, s.ID.String())
		if rootCause == nil && s.Err != nil && !errors.Is(s.Err, task.ErrSkipped) {
			rootCause = s.Err
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if rootCause == nil {
		rootCause = task.ErrSkipped
	}
	return fmt.Errorf("plan %s failed for %s: %w", r.Plan, strings.Join(failed, ", "), rootCause)
}

// Print writes the per-step status list.
func (r *Report) Print(w io.Writer) {
	width := 0
	for _, s := range r.Steps {
		width = max(width, len(s.ID.String()))
	}
	fmt.Fprintf(w, "plan %s: %d step(s) in %s\n", r.Plan, len(r.Steps), r.Duration.Round(time.Millisecond))
	for _, s := range r.Steps {
		written := 0
		if s.Result != nil {
			written = len(s.Result.Written)
		}
		fmt.Fprintf(w, "  %-7s %-*s  %d written", s.Status, width, s.ID, written)
		if s.Duration > 0 {
			fmt.Fprintf(w, "  %s", s.Duration.Round(time.Millisecond))
		}
		fmt.Fprintln(w)
		if s.Status == Succeeded || s.Err == nil {
			continue
		}
		for _, line := range strings.Split(s.Err.Error(), "\n") {
			fmt.Fprintf(w, "          %s\n", line)
		}
	}
	if r.Failed() {
		fmt.Fprintln(w, "FAILED")
	} else {
		fmt.Fprintln(w, "OK")
	}
}
