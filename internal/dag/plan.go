package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Resolver is the read-only view of the registry a plan is built from.
type Resolver interface {
	Resolve(name string) (registry.Resolution, error)
}

// Plan is the ordered, deduplicated list of specs to run for one invocation
// together with the dependency graph between them.
type Plan struct {
	Name  string
	Steps []*task.Spec
	Graph *Graph
}

// IDs returns the step identifiers in plan order.
func (p *Plan) IDs() []task.ID {
	out := make([]task.ID, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.ID)
	}
	return out
}

// Build resolves names in order and returns the resulting plan. Aliases
// expand depth-first; a task reached twice runs once, at its first
// position. It fails with *task.CyclicAliasError when an alias reaches
// itself, *task.UnknownTaskError for an unknown name, and *task.ConfigError
// when the inferred dependencies form a cycle.
func Build(ctx context.Context, reg Resolver, names ...string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	if len(names) == 0 {
		return nil, task.Configf("no task or alias name given")
	}

	e := &expander{reg: reg, seen: make(map[task.ID]bool)}
	for _, name := range names {
		if err := e.expand(name, nil); err != nil {
			return nil, err
		}
	}

	g := New()
	for _, spec := range e.steps {
		g.AddNode(spec.ID)
	}
	if err := linkImplicit(g, e.steps); err != nil {
		return nil, err
	}
	if err := linkExplicit(g, e.steps); err != nil {
		return nil, err
	}
	if err := g.DetectCycles(); err != nil {
		return nil, &task.ConfigError{Msg: "task dependencies form a cycle", Err: err}
	}

	byID := make(map[task.ID]*task.Spec, len(e.steps))
	for _, spec := range e.steps {
		byID[spec.ID] = spec
	}
	plan := &Plan{Name: strings.Join(names, ","), Graph: g}
	for _, id := range g.TopologicalOrder() {
		plan.Steps = append(plan.Steps, byID[id])
	}

	logger.Debug("Execution plan built.", "name", plan.Name, "steps", len(plan.Steps))
	return plan, nil
}

// expander walks aliases depth-first, collecting specs in first-seen order.
type expander struct {
	reg   Resolver
	seen  map[task.ID]bool
	steps []*task.Spec
}

func (e *expander) expand(name string, stack []string) error {
	res, err := e.reg.Resolve(name)
	if err != nil {
		return err
	}
	if res.Alias == nil {
		for _, spec := range res.Specs {
			if e.seen[spec.ID] {
				continue
			}
			e.seen[spec.ID] = true
			e.steps = append(e.steps, spec)
		}
		return nil
	}

	for i, active := range stack {
		if active == name {
			path := append(append([]string{}, stack[i:]...), name)
			return &task.CyclicAliasError{Path: path}
		}
	}
	stack = append(stack, name)
	for _, ref := range res.Alias.Tasks {
		if err := e.expand(ref, stack); err != nil {
			return err
		}
	}
	return nil
}

// linkImplicit adds an edge from every earlier step to each later step that
// touches one of its outputs or rewrites one of its inputs. Two steps that
// write the same path keep their plan order.
func linkImplicit(g *Graph, steps []*task.Spec) error {
	for i, later := range steps {
		reads, writes := later.Reads(), later.Writes()
		for _, earlier := range steps[:i] {
			earlierWrites := earlier.Writes()
			if !anyOverlap(reads, earlierWrites) &&
				!anyOverlap(writes, earlierWrites) &&
				!anyOverlap(writes, earlier.Reads()) {
				continue
			}
			if err := g.AddEdge(earlier.ID, later.ID); err != nil {
				return fmt.Errorf("linking %s -> %s: %w", earlier.ID, later.ID, err)
			}
		}
	}
	return nil
}

// linkExplicit adds depends_on edges where both ends are in the plan.
func linkExplicit(g *Graph, steps []*task.Spec) error {
	inPlan := make(map[task.ID]bool, len(steps))
	for _, s := range steps {
		inPlan[s.ID] = true
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if !inPlan[dep] {
				continue
			}
			if err := g.AddEdge(dep, s.ID); err != nil {
				return &task.ConfigError{Msg: fmt.Sprintf("task %s", s.ID), Err: err}
			}
		}
	}
	return nil
}

func anyOverlap(a, b []task.Footprint) bool {
	for _, x := range a {
		for _, y := range b {
			if overlaps(x, y) {
				return true
			}
		}
	}
	return false
}

// overlaps reports whether two footprints can name a common file. A glob
// covers the tree under its static base unless it is compared with a single
// file, which it must match.
func overlaps(a, b task.Footprint) bool {
	aGlob, bGlob := fsutil.IsGlob(a.Path), fsutil.IsGlob(b.Path)
	switch {
	case aGlob && !bGlob && !b.Tree:
		return fsutil.Match(a.Path, b.Path)
	case bGlob && !aGlob && !a.Tree:
		return fsutil.Match(b.Path, a.Path)
	}
	ra, aTree := root(a)
	rb, bTree := root(b)
	switch {
	case fsutil.Within(ra, rb):
		return aTree || fsutil.Within(rb, ra)
	case fsutil.Within(rb, ra):
		return bTree
	}
	return false
}

func root(f task.Footprint) (string, bool) {
	if fsutil.IsGlob(f.Path) {
		return fsutil.StaticBase(f.Path), true
	}
	return f.Path, f.Tree
}
