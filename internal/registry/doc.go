// Package registry provides the central "glue" between configuration and the
// transform kinds.
//
// The Registry stores the immutable task specs and aliases loaded from
// configuration, along with the compiled executors that implement each task
// kind. Modules register their executors at startup through the Module
// interface. The registry is then populated from the config model and
// validated, so that every spec has an executor, every destination lies in
// the output root and every alias resolves, before anything is written.
package registry
