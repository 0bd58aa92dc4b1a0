// Package task defines the domain model shared by every layer of the
// orchestrator: task identities, the immutable TaskSpec description of a
// file-transform unit, aliases, per-task results and the error taxonomy.
//
// Nothing in this package performs I/O. Specs are constructed once by a
// config loader and never mutated afterwards, so they can be shared freely
// between the scheduler, the worker pool and the watcher.
package task
