package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It stands in for the executor of Kind ("copy" by default, since copy
// tasks need no source files), records the execution time of each task and
// fails the variants listed in Fail.
type MockSleeperModule struct {
	Kind           string
	ExecutionTimes map[string]*ExecutionRecord
	Fail           map[string]bool
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		Fail:           make(map[string]bool),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register registers the sleeper executor under Kind.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	kind := m.Kind
	if kind == "" {
		kind = "copy"
	}
	r.RegisterExecutor(taskKind(kind), m)
}

// Record returns the execution record for a variant, or nil.
func (m *MockSleeperModule) Record(variant string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecutionTimes[variant]
}

// Execute sleeps, records the timing for the spec's variant and reports a
// failure if the variant is listed in Fail. It implements registry.Executor.
func (m *MockSleeperModule) Execute(ctx context.Context, spec *task.Spec) *task.Result {
	res := task.NewResult()
	startTime := time.Now()
	select {
	case <-time.After(m.sleepDuration):
	case <-ctx.Done():
		res.AddError(ctx.Err())
		return res
	}
	endTime := time.Now()

	m.mu.Lock()
	m.ExecutionTimes[spec.ID.Variant] = &ExecutionRecord{Start: startTime, End: endTime}
	fail := m.Fail[spec.ID.Variant]
	m.mu.Unlock()

	if m.completionChan != nil {
		m.completionChan <- spec.ID.Variant
	}
	if fail {
		res.AddError(task.Configf("sleeper %s told to fail", spec.ID.Variant))
	}
	return res
}
