package app

import (
	"context"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/dag"
	"github.com/vk/assetgrid/internal/executor"
)

// Run resolves name to a plan and executes it once. The per-step status
// list is written to the error writer. It returns the plan error, if any.
func (a *App) Run(ctx context.Context, name string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "name", name)

	plan, err := dag.Build(ctx, a.registry, name)
	if err != nil {
		return err
	}
	_, err = a.execute(ctx, plan)
	return err
}

// execute runs plan and prints its report.
func (a *App) execute(ctx context.Context, plan *dag.Plan) (*executor.Report, error) {
	if len(plan.Steps) == 0 {
		a.logger.Warn("Plan has no steps, execution not required.", "plan", plan.Name)
		return &executor.Report{Plan: plan.Name}, nil
	}

	a.logger.Info("🚀 Starting plan.", "plan", plan.Name, "steps", len(plan.Steps))
	report := a.executor.Run(ctx, plan)
	report.Print(a.errW)

	if err := report.Err(); err != nil {
		a.logger.Error("❌ Plan failed.", "plan", plan.Name, "failed", len(report.FailedIDs()), "duration", report.Duration)
		return report, err
	}
	a.logger.Info("🏁 Plan finished.", "plan", plan.Name, "written", len(report.Written()), "duration", report.Duration)
	return report, nil
}
