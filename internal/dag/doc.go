// Package dag turns a requested task or alias name into an execution plan.
//
// Aliases are expanded depth-first in declared order, repeated tasks are
// kept at their first position, and a dependency graph is inferred between
// the resulting steps: a step depends on an earlier step whose destinations
// it reads, and on any step it names in depends_on. The plan's step order is
// a stable topological order of that graph.
package dag
