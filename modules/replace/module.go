// Package replace implements the `replace` task kind: literal, global
// substring replacement across target files, rewritten in place. It is
// typically used to stamp cache-busting tokens into minified templates.
package replace

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Kind is the task kind served by this module.
const Kind task.Kind = "replace"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the replace executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor(Kind, registry.ExecutorFunc(Execute))
}

// Execute evaluates every replacement value once for this run and applies
// the patterns, in order, to each target. Targets may be globs; a literal
// target that does not exist is reported as *task.SourceNotFoundError.
func Execute(ctx context.Context, spec *task.Spec) *task.Result {
	logger := ctxlog.FromContext(ctx)
	res := task.NewResult()

	pairs, err := evaluate(ctx, spec.Options.Replacements)
	if err != nil {
		res.AddError(err)
		return res
	}
	targets, err := fsutil.Expand(spec.Options.Targets)
	if err != nil {
		res.AddError(task.Configf("%s: invalid target pattern: %v", spec.ID, err))
		return res
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			res.AddError(err)
			break
		}
		n, err := rewrite(ctx, target, pairs)
		if err != nil {
			res.AddError(err)
			continue
		}
		logger.Debug("Replacements applied.", "target", target, "count", n)
		res.AddWritten(target)
	}
	return res
}

// evaluate resolves every replacement into an ordered match/value list.
func evaluate(ctx context.Context, reps []task.Replacement) ([][2]string, error) {
	pairs := make([][2]string, 0, len(reps))
	for _, r := range reps {
		val, err := r.Value(ctx)
		if err != nil {
			return nil, fmt.Errorf("evaluating replacement for %q: %w", r.Match, err)
		}
		pairs = append(pairs, [2]string{r.Match, val})
	}
	return pairs, nil
}

// rewrite applies pairs to the file at path and returns the number of
// substitutions made. Patterns apply one after another, so a later pattern
// sees the output of an earlier one.
func rewrite(ctx context.Context, path string, pairs [][2]string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &task.SourceNotFoundError{Path: path}
		}
		return 0, &task.IOError{Op: "stat", Path: path, Err: err}
	}
	data, err := fsutil.ReadSource(path)
	if err != nil {
		return 0, err
	}

	content := string(data)
	total := 0
	for _, p := range pairs {
		total += strings.Count(content, p[0])
		content = strings.ReplaceAll(content, p[0], p[1])
	}
	if err := fsutil.WriteFile(ctx, path, []byte(content), info.Mode().Perm()); err != nil {
		return 0, err
	}
	return total, nil
}
