// Package app wires configuration, the registry, the planner and the
// executor into the three user-facing operations: run a task or alias once,
// watch sources and rebuild incrementally, and list what is defined. It is
// decoupled from any specific entrypoint like a CLI.
package app
