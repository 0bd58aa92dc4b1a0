package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/task"
)

// Validate checks the populated registry before any plan is built: every
// spec has an executor, destinations stay inside outputRoot and are unique
// across specs, explicit dependencies exist, and aliases reference known
// names without cycles.
func (r *Registry) Validate(ctx context.Context, outputRoot string) error {
	logger := ctxlog.FromContext(ctx)
	r.logSummary(ctx)

	if outputRoot == "" {
		return task.Configf("output root must be set")
	}

	var problems []string
	owners := make(map[string]task.ID)

	for _, id := range r.specOrder {
		spec := r.specs[id]
		if _, ok := r.executors[id.Kind]; !ok {
			problems = append(problems, fmt.Sprintf("task %s: no executor registered for kind %q", id, id.Kind))
		}
		for _, dest := range spec.Destinations() {
			if !fsutil.Within(outputRoot, dest) {
				problems = append(problems, fmt.Sprintf("task %s: destination %s is outside the output root %s", id, dest, outputRoot))
			}
		}
		// Copy rules may share a destination directory; file destinations may not.
		for _, f := range spec.Files {
			if owner, taken := owners[f.Dest]; taken {
				if owner == id {
					problems = append(problems, fmt.Sprintf("task %s: destination %s is listed more than once", id, f.Dest))
				} else {
					problems = append(problems, fmt.Sprintf("task %s: destination %s is already produced by %s", id, f.Dest, owner))
				}
				continue
			}
			owners[f.Dest] = id
		}
		for _, target := range spec.Options.Targets {
			if !fsutil.Within(outputRoot, fsutil.StaticBase(target)) {
				problems = append(problems, fmt.Sprintf("task %s: replace target %s is outside the output root %s", id, target, outputRoot))
			}
		}
		for _, dep := range spec.DependsOn {
			if _, ok := r.specs[dep]; !ok {
				problems = append(problems, fmt.Sprintf("task %s: depends_on references unknown task %s", id, dep))
			}
		}
	}

	for _, name := range r.aliasOrder {
		for _, ref := range r.aliases[name].Tasks {
			if _, err := r.Resolve(ref); err != nil {
				problems = append(problems, fmt.Sprintf("alias %s: %v", name, err))
			}
		}
	}

	var errs []error
	if len(problems) > 0 {
		errs = append(errs, &task.ConfigError{Msg: "invalid configuration:\n  - " + strings.Join(problems, "\n  - ")})
	}
	if err := r.checkAliasCycles(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Debug("Registry validation successful.")
	return nil
}

// checkAliasCycles walks every alias depth-first and reports the first path
// that revisits an alias on the active stack.
func (r *Registry) checkAliasCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.aliases))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), name)
			return &task.CyclicAliasError{Path: path}
		case done:
			return nil
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, ref := range r.aliases[name].Tasks {
			if _, isAlias := r.aliases[ref]; !isAlias {
				continue
			}
			if err := visit(ref); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range r.aliasOrder {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
