// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery and parsing, evaluating
// expressions against the project metadata, and translating the decoded
// schema structs into the format-agnostic config model.
//
// Expressions are evaluated once, at load time, with one exception: the
// `replacement` of a replace pattern is kept as an expression and evaluated
// again on every run so that values such as `epoch_ms()` are never reused.
package hcl
