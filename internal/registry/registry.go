package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/task"
)

// Module is the interface that all transform kinds must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Executor runs a single task spec. It never returns a nil Result; per-file
// failures are collected in Result.Errors. Execute must return soon after
// ctx is done: once a plan stops, tasks still running after a short grace
// period are reported as timed out and their results are discarded.
type Executor interface {
	Execute(ctx context.Context, spec *task.Spec) *task.Result
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, spec *task.Spec) *task.Result

// Execute calls f(ctx, spec).
func (f ExecutorFunc) Execute(ctx context.Context, spec *task.Spec) *task.Result {
	return f(ctx, spec)
}

// Registry holds the executors, task specs and aliases for a single
// application instance. It is read-only once populated.
type Registry struct {
	executors  map[task.Kind]Executor
	specs      map[task.ID]*task.Spec
	specOrder  []task.ID
	aliases    map[string]*task.Alias
	aliasOrder []string
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		executors: make(map[task.Kind]Executor),
		specs:     make(map[task.ID]*task.Spec),
		aliases:   make(map[string]*task.Alias),
	}
}

// RegisterExecutor registers the Go implementation of a task kind.
func (r *Registry) RegisterExecutor(kind task.Kind, exec Executor) {
	if _, exists := r.executors[kind]; exists {
		panic(fmt.Sprintf("executor for kind '%s' already registered", kind))
	}
	r.executors[kind] = exec
}

// Executor returns the executor registered for kind.
func (r *Registry) Executor(kind task.Kind) (Executor, bool) {
	exec, ok := r.executors[kind]
	return exec, ok
}

// Register adds a task spec. It fails with *task.DuplicateTaskError when the
// (kind, variant) pair is already present.
func (r *Registry) Register(spec *task.Spec) error {
	if spec == nil || spec.ID.Kind == "" || spec.ID.Variant == "" {
		return task.Configf("task spec must have a kind and a variant")
	}
	if _, exists := r.specs[spec.ID]; exists {
		return &task.DuplicateTaskError{ID: spec.ID}
	}
	if _, exists := r.aliases[string(spec.ID.Kind)]; exists {
		return task.Configf("task kind %q collides with an alias of the same name", spec.ID.Kind)
	}
	r.specs[spec.ID] = spec
	r.specOrder = append(r.specOrder, spec.ID)
	return nil
}

// RegisterAlias adds an alias. Alias names share a namespace with task kinds
// and identifiers, so a collision is a configuration error.
func (r *Registry) RegisterAlias(alias *task.Alias) error {
	if alias == nil || !task.ValidName(alias.Name) {
		return task.Configf("invalid alias name")
	}
	if _, exists := r.aliases[alias.Name]; exists {
		return task.Configf("alias %q is defined more than once", alias.Name)
	}
	if r.hasKind(task.Kind(alias.Name)) {
		return task.Configf("alias %q collides with a task kind of the same name", alias.Name)
	}
	if len(alias.Tasks) == 0 {
		return task.Configf("alias %q must reference at least one task", alias.Name)
	}
	r.aliases[alias.Name] = alias
	r.aliasOrder = append(r.aliasOrder, alias.Name)
	return nil
}

// PopulateFromModel registers every spec and alias of a loaded configuration.
func (r *Registry) PopulateFromModel(model *config.Model) error {
	for _, spec := range model.Tasks {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	for _, alias := range model.Aliases {
		if err := r.RegisterAlias(alias); err != nil {
			return err
		}
	}
	return nil
}

// Spec returns the spec registered under id.
func (r *Registry) Spec(id task.ID) (*task.Spec, bool) {
	spec, ok := r.specs[id]
	return spec, ok
}

// Specs returns every spec in declaration order.
func (r *Registry) Specs() []*task.Spec {
	out := make([]*task.Spec, 0, len(r.specOrder))
	for _, id := range r.specOrder {
		out = append(out, r.specs[id])
	}
	return out
}

// Alias returns the alias registered under name.
func (r *Registry) Alias(name string) (*task.Alias, bool) {
	alias, ok := r.aliases[name]
	return alias, ok
}

// Aliases returns every alias in declaration order.
func (r *Registry) Aliases() []*task.Alias {
	out := make([]*task.Alias, 0, len(r.aliasOrder))
	for _, name := range r.aliasOrder {
		out = append(out, r.aliases[name])
	}
	return out
}

// Resolution is the result of looking up a name: either an alias to be
// expanded or a non-empty list of specs.
type Resolution struct {
	Alias *task.Alias
	Specs []*task.Spec
}

// Resolve looks up name as an alias, then as a `kind:variant` identifier,
// then as a bare kind expanding to every variant in declaration order. It
// fails with *task.UnknownTaskError when nothing matches.
func (r *Registry) Resolve(name string) (Resolution, error) {
	if alias, ok := r.aliases[name]; ok {
		return Resolution{Alias: alias}, nil
	}
	if strings.Contains(name, ":") {
		id, err := task.ParseID(name)
		if err != nil {
			return Resolution{}, &task.UnknownTaskError{Name: name}
		}
		if spec, ok := r.specs[id]; ok {
			return Resolution{Specs: []*task.Spec{spec}}, nil
		}
		return Resolution{}, &task.UnknownTaskError{Name: name}
	}
	var specs []*task.Spec
	for _, id := range r.specOrder {
		if string(id.Kind) == name {
			specs = append(specs, r.specs[id])
		}
	}
	if len(specs) == 0 {
		return Resolution{}, &task.UnknownTaskError{Name: name}
	}
	return Resolution{Specs: specs}, nil
}

// Names returns every task identifier followed by every alias name, each in
// declaration order.
func (r *Registry) Names() (tasks []string, aliases []string) {
	for _, id := range r.specOrder {
		tasks = append(tasks, id.String())
	}
	aliases = append(aliases, r.aliasOrder...)
	return tasks, aliases
}

func (r *Registry) hasKind(kind task.Kind) bool {
	for _, id := range r.specOrder {
		if id.Kind == kind {
			return true
		}
	}
	return false
}

// logSummary reports what the registry holds.
func (r *Registry) logSummary(ctx context.Context) {
	ctxlog.FromContext(ctx).Debug("Registry populated.",
		"executors", len(r.executors),
		"tasks", len(r.specs),
		"aliases", len(r.aliases),
	)
}
