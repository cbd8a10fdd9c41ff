package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/jobgrid/internal/ctxlog"
)

// Run executes the requested job, or every job when none was requested.
// With every job, individual failures are logged and do not fail the run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		if err := a.closeHealthCheckServer(); err != nil {
			a.logger.Warn("Health check server did not close cleanly.", "error", err)
		}
	}()

	if a.config.DryRun {
		a.logger.Info("🧪 Dry run enabled, commands are reported but not executed.")
	}

	if a.config.Job != "" {
		if _, ok := a.engine.Job(a.config.Job); !ok {
			return &UnknownJobError{Name: a.config.Job, Available: a.engine.JobNames()}
		}
		a.logger.Info("🚀 Starting job.", "job", a.config.Job)
		if err := a.engine.Run(ctx, a.config.Job); err != nil {
			return fmt.Errorf("job %q failed: %w", a.config.Job, err)
		}
		a.logger.Info("🏁 Execution finished.")
		return nil
	}

	if len(a.jobs.Jobs) == 0 {
		a.logger.Warn("No jobs found in configuration, execution not required.")
		return nil
	}

	a.logger.Info("🚀 Starting all jobs.", "count", len(a.jobs.Jobs))
	summary := a.engine.RunAll(ctx)
	if err := summary.Err(); err != nil {
		a.logger.Warn("🏁 Execution finished with failures.",
			"failed", len(summary.Failed()), "total", len(summary.Results), "error", err)
		return nil
	}
	a.logger.Info("🏁 Execution finished.", "total", len(summary.Results))
	return nil
}
