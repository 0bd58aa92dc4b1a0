// Package less implements the `less` task kind: a compiler for the subset of
// LESS used by typical site stylesheets. It supports @import, block-scoped
// lazy variables, nested rulesets with `&`, parameterless mixins and
// @media bubbling.
package less

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Kind is the task kind served by this module.
const Kind task.Kind = "less"

// DefaultCacheSize is the number of parsed files kept between compilations.
const DefaultCacheSize = 256

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the less executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor(Kind, NewCompiler(DefaultCacheSize))
}

// Compiler compiles stylesheets. It is safe for concurrent use and keeps
// parsed files cached across runs.
type Compiler struct {
	once  sync.Once
	size  int
	cache *sheetCache
	err   error
}

// NewCompiler returns a Compiler caching up to cacheSize parsed files.
func NewCompiler(cacheSize int) *Compiler {
	return &Compiler{size: cacheSize}
}

func (c *Compiler) sheets() (*sheetCache, error) {
	c.once.Do(func() {
		size := c.size
		if size <= 0 {
			size = DefaultCacheSize
		}
		c.cache, c.err = newSheetCache(size)
	})
	return c.cache, c.err
}

// CompileFile compiles the stylesheet at path. Imports resolve relative to
// the importing file, then against each of paths.
func (c *Compiler) CompileFile(path string, paths []string, compress bool) (string, error) {
	cache, err := c.sheets()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root, err := cache.load(abs)
	if err != nil {
		return "", err
	}
	im := &importer{cache: cache, paths: paths, seen: map[string]bool{abs: true}}
	return compileTree(root, im, compress)
}

func compileTree(root []node, im *importer, compress bool) (string, error) {
	root, err := im.expand(root)
	if err != nil {
		return "", err
	}
	f := &flattener{}
	top := frame{scope: newScope(nil, root)}
	top.sink = &f.items
	if err := f.block(root, top); err != nil {
		return "", err
	}
	return render(f.raws, f.items, compress), nil
}

// Execute compiles every file mapping of spec. A failing file is reported
// and its siblings still compile.
func (c *Compiler) Execute(ctx context.Context, spec *task.Spec) *task.Result {
	logger := ctxlog.FromContext(ctx)
	res := task.NewResult()

	for _, f := range spec.Files {
		if err := ctx.Err(); err != nil {
			res.AddError(err)
			break
		}
		if len(f.Src) != 1 {
			res.AddError(task.Configf("%s: less expects exactly one source per destination, got %d", f.Dest, len(f.Src)))
			continue
		}
		css, err := c.CompileFile(f.Src[0], spec.Options.Paths, spec.Options.Compress)
		if err != nil {
			logger.Warn("Stylesheet failed to compile.", "src", f.Src[0], "error", err)
			res.AddError(err)
			continue
		}
		if err := fsutil.WriteFile(ctx, f.Dest, []byte(css), 0o644); err != nil {
			res.AddError(err)
			continue
		}
		logger.Debug("Stylesheet compiled.", "src", f.Src[0], "dest", f.Dest, "bytes", len(css))
		res.AddWritten(f.Dest)
	}
	return res
}
