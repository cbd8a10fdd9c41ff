package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/engine"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config     *Config
	logger     *slog.Logger
	runID      string
	jobs       *config.Config
	engine     *engine.Engine
	httpServer *http.Server
	// ctx carries the logger for handlers outside a Run call.
	ctx context.Context
}

// NewApp is the constructor for the main application. Logs go to logW and
// job output to outW. The configuration is loaded and validated here, so a
// returned App is ready to run.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	runID := uuid.NewString()
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW).With("run_id", runID)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	jobs, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and validated.", "jobs", len(jobs.Jobs))

	eng := engine.New(jobs,
		engine.WithOutput(outW, logW),
		engine.WithWorkers(appConfig.WorkerCount),
		engine.WithDryRun(appConfig.DryRun),
	)

	return &App{
		config: appConfig,
		logger: logger,
		runID:  runID,
		jobs:   jobs,
		engine: eng,
		ctx:    ctx,
	}, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// RunID identifies this run in every log line.
func (a *App) RunID() string {
	return a.runID
}
