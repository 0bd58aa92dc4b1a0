package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/task"
)

type job struct {
	index int
	spec  *task.Spec
}

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, jobs <-chan job, outcomes chan<- outcome, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range jobs {
		taskCtx, workerLogger := ctxlog.With(ctx, "workerID", workerID, "task", j.spec.ID.String())
		workerLogger.Info("▶️ Starting task")

		start := time.Now()
		res, err := e.run(taskCtx, j.spec)
		took := time.Since(start)

		switch {
		case err != nil:
			workerLogger.Error("Task could not run.", "error", err)
		case res.Failed():
			workerLogger.Error("Task finished with errors.", "errors", len(res.Errors), "written", len(res.Written))
		default:
			workerLogger.Info("✅ Finished task", "written", len(res.Written), "duration", took)
		}
		outcomes <- outcome{index: j.index, result: res, err: err, took: took}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func formatAny(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}
