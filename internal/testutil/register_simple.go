package testutil

import "github.com/vk/assetgrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single executor.
type SimpleModule struct {
	Kind     string
	Executor registry.Executor
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Kind != "" && m.Executor != nil {
		r.RegisterExecutor(taskKind(m.Kind), m.Executor)
	}
}
