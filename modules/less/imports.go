package less

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/task"
)

// cacheKey identifies one version of a file by its content.
type cacheKey struct {
	path string
	sum  uint64
}

// sheetCache holds parsed files across compilations and watch cycles. Parsed
// trees are shared, so nothing may mutate them after parsing.
type sheetCache struct {
	lru *lru.Cache[cacheKey, []node]
}

func newSheetCache(size int) (*sheetCache, error) {
	c, err := lru.New[cacheKey, []node](size)
	if err != nil {
		return nil, err
	}
	return &sheetCache{lru: c}, nil
}

// load returns the parsed tree for path. The file is always read; only
// parsing is skipped when the content is unchanged.
func (c *sheetCache) load(path string) ([]node, error) {
	data, err := fsutil.ReadSource(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: path, sum: xxhash.Sum64(data)}
	if nodes, ok := c.lru.Get(key); ok {
		return nodes, nil
	}
	nodes, err := parse(path, string(data))
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, nodes)
	return nodes, nil
}

// importer splices imported files into the tree. Each file is imported at
// most once per compilation, which also breaks import cycles.
type importer struct {
	cache *sheetCache
	paths []string
	seen  map[string]bool
}

func (im *importer) expand(nodes []node) ([]node, error) {
	out := make([]node, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *importStmt:
			if n.css {
				out = append(out, n)
				continue
			}
			path, ok := im.resolve(n.path, n.file)
			if !ok {
				return nil, &task.StyleSyntaxError{File: n.file, Line: n.ln, Msg: "cannot find import \"" + n.path + "\""}
			}
			if im.seen[path] {
				continue
			}
			im.seen[path] = true
			imported, err := im.cache.load(path)
			if err != nil {
				return nil, err
			}
			imported, err = im.expand(imported)
			if err != nil {
				return nil, err
			}
			out = append(out, imported...)
		case *ruleSet:
			children, err := im.expand(n.children)
			if err != nil {
				return nil, err
			}
			cp := *n
			cp.children = children
			out = append(out, &cp)
		case *atBlock:
			children, err := im.expand(n.children)
			if err != nil {
				return nil, err
			}
			cp := *n
			cp.children = children
			out = append(out, &cp)
		default:
			out = append(out, n)
		}
	}
	return out, nil
}

// resolve looks for name next to the importing file, then in each search
// path. A name without an extension gets ".less".
func (im *importer) resolve(name, from string) (string, bool) {
	if filepath.Ext(name) == "" {
		name += ".less"
	}
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) {
		return filepath.Clean(name), isFile(name)
	}
	candidates := []string{filepath.Join(filepath.Dir(from), name)}
	for _, p := range im.paths {
		candidates = append(candidates, filepath.Join(p, name))
	}
	for _, c := range candidates {
		if isFile(c) {
			if abs, err := filepath.Abs(c); err == nil {
				return abs, true
			}
			return c, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
