// Package copyfiles implements the `copy` task kind, which stages built
// artifacts from one directory of the output tree into another.
package copyfiles

import (
	"context"
	"path/filepath"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Kind is the task kind served by this module.
const Kind task.Kind = "copy"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the copy executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor(Kind, registry.ExecutorFunc(Execute))
}

// Execute copies, for every rule of spec, each file under the rule's source
// directory that matches its pattern into the destination directory,
// keeping the relative path. Existing files are overwritten. A rule that
// matches nothing writes nothing and is not an error.
func Execute(ctx context.Context, spec *task.Spec) *task.Result {
	logger := ctxlog.FromContext(ctx)
	res := task.NewResult()

	for _, rule := range spec.Options.Copies {
		files, err := fsutil.GlobDir(rule.SrcDir, rule.Pattern)
		if err != nil {
			res.AddError(&task.IOError{Op: "copy", Path: rule.SrcDir, Err: err})
			continue
		}
		if len(files) == 0 {
			logger.Debug("Copy rule matched no files.", "src", rule.SrcDir, "pattern", rule.Pattern)
			continue
		}

		for _, rel := range files {
			if err := ctx.Err(); err != nil {
				res.AddError(err)
				return res
			}
			src := filepath.Join(rule.SrcDir, filepath.FromSlash(rel))
			dst := filepath.Join(rule.DestDir, filepath.FromSlash(rel))
			if err := fsutil.CopyFile(ctx, src, dst); err != nil {
				res.AddError(err)
				continue
			}
			res.AddWritten(dst)
		}
		logger.Debug("Copy rule applied.", "src", rule.SrcDir, "dest", rule.DestDir, "files", len(files))
	}
	return res
}
