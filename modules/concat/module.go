// Package concat implements the `concat` task kind: ordered concatenation
// of sources into one destination, with an optional banner.
package concat

import (
	"context"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Kind is the task kind served by this module.
const Kind task.Kind = "concat"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the concat executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor(Kind, registry.ExecutorFunc(Execute))
}

// Execute builds every destination of spec from its sources in order.
// Sources may be globs. A missing source fails only its destination.
func Execute(ctx context.Context, spec *task.Spec) *task.Result {
	logger := ctxlog.FromContext(ctx)
	res := task.NewResult()
	opts := spec.Options

	for _, f := range spec.Files {
		if err := ctx.Err(); err != nil {
			res.AddError(err)
			break
		}
		out, n, err := join(f.Src, opts)
		if err != nil {
			res.AddError(err)
			continue
		}
		if err := fsutil.WriteFile(ctx, f.Dest, []byte(out), 0o644); err != nil {
			res.AddError(err)
			continue
		}
		logger.Debug("Sources concatenated.", "dest", f.Dest, "sources", n)
		res.AddWritten(f.Dest)
	}
	return res
}

func join(patterns []string, opts task.Options) (string, int, error) {
	sources, err := fsutil.Expand(patterns)
	if err != nil {
		return "", 0, task.Configf("invalid source pattern: %v", err)
	}

	var b strings.Builder
	b.WriteString(opts.Banner)
	for i, src := range sources {
		data, err := fsutil.ReadSource(src)
		if err != nil {
			return "", 0, err
		}
		content := string(data)
		if opts.StripBanners {
			content = StripBanner(content)
		}
		if i > 0 {
			b.WriteString(opts.Separator)
		}
		b.WriteString(content)
	}
	return b.String(), len(sources), nil
}

// StripBanner removes a leading /* ... */ block comment and the whitespace
// after it. Comments opened with /*! are kept.
func StripBanner(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "/*!") {
		return s
	}
	end := strings.Index(trimmed[2:], "*/")
	if end < 0 {
		return s
	}
	return strings.TrimLeft(trimmed[end+4:], " \t\r\n")
}
