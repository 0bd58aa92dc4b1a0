package testutil

import (
	"context"

	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// NoOpModule registers executors that write nothing for each of Kinds.
// It's useful for tests that should fail before execution begins but still
// need configuration that passes registry validation.
type NoOpModule struct {
	Kinds []string
}

// Register registers one no-op executor per kind.
func (m *NoOpModule) Register(r *registry.Registry) {
	for _, kind := range m.Kinds {
		r.RegisterExecutor(taskKind(kind), registry.ExecutorFunc(func(context.Context, *task.Spec) *task.Result {
			return task.NewResult()
		}))
	}
}

func taskKind(s string) task.Kind { return task.Kind(s) }
