// Package htmlmin implements the `htmlmin` task kind. Templates are
// tokenized leniently, so unknown tags and sloppy markup never fail a file;
// embedded scripts and styles are minified in place.
package htmlmin

import (
	"context"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Kind is the task kind served by this module.
const Kind task.Kind = "htmlmin"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the htmlmin executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor(Kind, registry.ExecutorFunc(Execute))
}

// Execute minifies every file mapping of spec independently.
func Execute(ctx context.Context, spec *task.Spec) *task.Result {
	logger := ctxlog.FromContext(ctx)
	res := task.NewResult()

	for _, f := range spec.Files {
		if err := ctx.Err(); err != nil {
			res.AddError(err)
			break
		}
		if len(f.Src) != 1 {
			res.AddError(task.Configf("%s: htmlmin expects exactly one source per destination, got %d", f.Dest, len(f.Src)))
			continue
		}
		src, err := fsutil.ReadSource(f.Src[0])
		if err != nil {
			res.AddError(err)
			continue
		}
		out, err := Minify(ctx, f.Src[0], src, spec.Options)
		if err != nil {
			logger.Warn("Template failed to minify.", "src", f.Src[0], "error", err)
			res.AddError(err)
			continue
		}
		if err := fsutil.WriteFile(ctx, f.Dest, out, 0o644); err != nil {
			res.AddError(err)
			continue
		}
		logger.Debug("Template minified.", "src", f.Src[0], "dest", f.Dest, "before", len(src), "after", len(out))
		res.AddWritten(f.Dest)
	}
	return res
}
