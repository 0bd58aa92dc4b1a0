// Package config defines the format-agnostic configuration model for the
// application, along with the Loader interface for reading it from various
// sources.
//
// The `config.Model` is the single source of truth for the `registry`,
// `dag` and `watch` packages. Concrete implementations of the Loader, such
// as for HCL or YAML, are provided in separate packages. Every path in a
// Model is absolute: loaders resolve relative paths against the directory
// of the configuration file exactly once, at load time.
package config
