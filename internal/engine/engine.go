package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"runtime"
	"sync"

	"github.com/specialistvlad/jobgrid/internal/codec"
	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/fsutil"
	"github.com/specialistvlad/jobgrid/internal/iteration"
	"github.com/specialistvlad/jobgrid/internal/render"
	"golang.org/x/sync/errgroup"
)

// Engine runs the jobs of one configuration. Completion flags live as long
// as the Engine.
type Engine struct {
	cfg      *config.Config
	renderer render.Renderer
	files    config.FileLoader
	tracker  *Tracker
	exec     *Executor
	stdout   io.Writer
	workers  int
	dry      bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRenderer replaces the HCL template renderer.
func WithRenderer(r render.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithFileLoader replaces the loader used for iteration files.
func WithFileLoader(f config.FileLoader) Option {
	return func(e *Engine) { e.files = f }
}

// WithOutput sets where command output and messages go (stdout) and where
// command errors go (stderr).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdout = stdout
		e.exec.stderr = stderr
	}
}

// WithWorkers sets the pool size used by jobs with `parallel: true`.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithDryRun renders and reports commands without spawning them.
func WithDryRun(dry bool) Option {
	return func(e *Engine) { e.dry = dry }
}

// New creates an engine for a validated configuration.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		renderer: render.NewHCLRenderer(),
		files:    codec.FileLoader{},
		tracker:  NewTracker(cfg.JobNames()),
		exec:     &Executor{stderr: os.Stderr},
		stdout:   os.Stdout,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stdout = newSyncWriter(e.stdout)
	e.exec.renderer = e.renderer
	e.exec.stdout = e.stdout
	e.exec.stderr = newSyncWriter(e.exec.stderr)
	e.exec.dry = e.dry
	return e
}

// Tracker exposes the completion flags, e.g. for status reporting.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Job looks a job up by name.
func (e *Engine) Job(name string) (*config.Job, bool) {
	return e.cfg.Job(name)
}

// JobNames returns the declared job names in order.
func (e *Engine) JobNames() []string {
	return e.cfg.JobNames()
}

// Run runs one job with the global env and props as its starting context.
func (e *Engine) Run(ctx context.Context, name string) error {
	job, ok := e.cfg.Job(name)
	if !ok {
		return fmt.Errorf("%w: %q", config.ErrUnknownJob, name)
	}
	root := &render.Context{ConfigDir: e.cfg.Dir, Env: e.cfg.Env, Props: e.cfg.Props}
	tctx, err := e.derive(root, job, nil)
	if err != nil {
		return err
	}
	return e.run(ctx, job, tctx)
}

// JobResult is the outcome of one top-level job.
type JobResult struct {
	Job string
	Err error
}

// Summary collects the outcomes of RunAll.
type Summary struct {
	Results []JobResult
}

// Failed returns the results that carry an error.
func (s *Summary) Failed() []JobResult {
	var out []JobResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err joins every failure, or returns nil.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Failed() {
		errs = append(errs, fmt.Errorf("job %q: %w", r.Job, r.Err))
	}
	return errors.Join(errs...)
}

// RunAll runs every job once in declared order. A failing job does not
// stop the jobs after it. Jobs already attempted as a reference of an
// earlier job are skipped by the tracker.
func (e *Engine) RunAll(ctx context.Context) *Summary {
	summary := &Summary{}
	for _, job := range e.cfg.Jobs {
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, JobResult{Job: job.Name, Err: ctx.Err()})
			continue
		}
		summary.Results = append(summary.Results, JobResult{Job: job.Name, Err: e.Run(ctx, job.Name)})
	}
	return summary
}

// run drives one job through its states. tctx is the job's context before
// any iteration.
func (e *Engine) run(ctx context.Context, job *config.Job, tctx *render.Context) error {
	ctx = ctxlog.With(ctx, "job", job.Name)
	logger := ctxlog.FromContext(ctx)
	state := func(s State) { logger.Debug("Job state changed.", "state", s.String()) }
	state(NotStarted)

	unlock := e.tracker.Lock(job.Name)
	defer unlock()

	pool := newFilePool()
	log := e.cfg.LogFor(job)

	state(GateCheck)
	gate := pool.scope()
	gateLog := e.outerLog(ctx, job, tctx)
	shouldRun := e.tracker.ShouldRun(job, func(cond string) bool {
		if err := e.exec.Run(ctx, cond, tctx, gateLog, gate); err != nil {
			logger.Info("🚧 Guard condition failed.", "condition", cond, "error", err)
			return false
		}
		return true
	})
	e.closeSinks(ctx, gate)
	if !shouldRun {
		state(Skipped)
		logger.Info("⏭️ Skipping job.")
		return nil
	}

	logger.Info("🚀 Running job.")
	err := e.runJob(ctx, job, tctx, log, pool, state)
	if err != nil {
		state(Failed)
		logger.Error("❌ Job failed.", "error", err)
	}
	e.tracker.MarkAttempted(job.Name)
	state(Attempted)
	if err == nil {
		logger.Info("✅ Job finished.")
	}
	return err
}

func (e *Engine) runJob(ctx context.Context, job *config.Job, tctx *render.Context, log config.LogOutput, pool *filePool, state func(State)) error {
	state(RunningDependencies)
	if err := e.runDependencies(ctx, job, tctx, pool); err != nil {
		return err
	}

	if len(job.Steps) == 0 {
		ctxlog.FromContext(ctx).Debug("Job has no steps, skipping iterations.")
		return nil
	}

	state(RunningIterations)
	seq, err := iteration.Resolve(job.Iters, e.files)
	if err != nil {
		return err
	}

	if workers := workerCount(job, e.workers); workers > 0 {
		return e.runParallel(ctx, job, tctx, seq, workers, log, pool)
	}
	return e.runSequential(ctx, job, tctx, seq, log, pool)
}

func workerCount(job *config.Job, defaultWorkers int) int {
	if job.Parallel == nil {
		return 0
	}
	return job.Parallel.Workers(defaultWorkers)
}

// runDependencies runs each dependency once, in order. A failing command is
// only logged; a failing job reference fails the job.
func (e *Engine) runDependencies(ctx context.Context, job *config.Job, tctx *render.Context, pool *filePool) error {
	if len(job.Depends) == 0 {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	sinks := pool.scope()
	defer e.closeSinks(ctx, sinks)
	log := e.outerLog(ctx, job, tctx)
	for i, dep := range job.Depends {
		switch d := dep.(type) {
		case config.Command:
			if err := e.exec.Run(ctx, d.Template, tctx, log, sinks); err != nil {
				logger.Warn("Dependency command failed, continuing.", "dependency", i, "command", d.Template, "error", err)
			}
		case config.JobRef:
			if err := e.runRef(ctx, d, tctx); err != nil {
				logger.Error("Dependency job failed.", "dependency", i, "target", d.Target, "error", err)
				return fmt.Errorf("dependency %q: %w", d.Target, err)
			}
		}
	}
	return nil
}

func (e *Engine) runSequential(ctx context.Context, job *config.Job, tctx *render.Context, seq iteration.Seq, log config.LogOutput, pool *filePool) error {
	var last error
	for item := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = e.runIteration(ctx, job, tctx, item, 0, log, pool)
		if last != nil && !job.IgnoreErrors {
			return last
		}
	}
	return last
}

// runParallel feeds iterations to a fixed pool of workers. An unignored
// failure stops the feed; iterations already running finish.
func (e *Engine) runParallel(ctx context.Context, job *config.Job, tctx *render.Context, seq iteration.Seq, workers int, log config.LogOutput, pool *filePool) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	items := make(chan iteration.Item)

	var mu sync.Mutex
	var last error
	for w := range workers {
		g.Go(func() error {
			wctx := ctxlog.With(gctx, "worker", w)
			for item := range items {
				if gctx.Err() != nil {
					continue
				}
				err := e.runIteration(wctx, job, tctx, item, w, log, pool)
				if job.IgnoreErrors {
					mu.Lock()
					last = err
					mu.Unlock()
					continue
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

feed:
	for item := range seq {
		select {
		case items <- item:
		case <-gctx.Done():
			break feed
		}
	}
	close(items)

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return last
}

// runIteration runs the message, transforms and steps of one iteration on
// its own copy of the context. With ignore_errors the result is the outcome
// of the last step evaluated.
func (e *Engine) runIteration(ctx context.Context, job *config.Job, base *render.Context, item iteration.Item, thread int, log config.LogOutput, pool *filePool) error {
	logger := ctxlog.FromContext(ctx)
	if item.HasValue {
		logger = logger.With("iter", item.Value)
		ctx = ctxlog.WithLogger(ctx, logger)
	}
	sinks := pool.scope()
	defer e.closeSinks(ctx, sinks)

	tctx := base.Clone()
	tctx.Thread = thread
	tctx.SetIteration(item)
	if job.Dir != "" {
		dir, err := e.renderer.Render(job.Dir, tctx)
		if err != nil {
			return err
		}
		tctx.Dir = fsutil.Resolve(e.cfg.Dir, dir)
	}

	if job.Message != "" {
		if msg, err := e.renderer.Render(job.Message, tctx); err != nil {
			logger.Warn("Failed to render message.", "error", err)
		} else {
			fmt.Fprintln(e.stdout, msg)
		}
	}

	var last error
	for _, spec := range job.Templates {
		last = e.transform(ctx, spec, tctx)
		if last != nil {
			logger.Error("Template transform failed.", "template", spec, "error", last)
			if !job.IgnoreErrors {
				return last
			}
		}
	}

	for i, step := range job.Steps {
		last = e.runStep(ctx, step, tctx, log, sinks)
		if last != nil {
			logger.Error("Step failed.", "step", i, "detail", describe(step), "error", last)
			if !job.IgnoreErrors {
				return last
			}
		}
	}
	return last
}

// outerLog is the log output of commands run outside any iteration: guards
// and dependencies. A file path that cannot be rendered there, typically
// because it uses iter, falls back to the global log output and then to
// stdout.
func (e *Engine) outerLog(ctx context.Context, job *config.Job, tctx *render.Context) config.LogOutput {
	log := e.cfg.LogFor(job)
	if e.renders(log, tctx) {
		return log
	}
	fallback := e.cfg.LogFor(nil)
	if !e.renders(fallback, tctx) {
		fallback = config.ToStdout{Enabled: true}
	}
	ctxlog.FromContext(ctx).Debug("Log path needs an iteration, using fallback for guards and dependencies.", "fallback", fmt.Sprintf("%T", fallback))
	return fallback
}

func (e *Engine) renders(log config.LogOutput, tctx *render.Context) bool {
	fp, ok := log.(config.FilePath)
	if !ok {
		return true
	}
	_, err := e.renderer.Render(fp.Template, tctx)
	return err == nil
}

func (e *Engine) closeSinks(ctx context.Context, s *sinks) {
	if err := s.Close(); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to close log files.", "error", err)
	}
}

func (e *Engine) runStep(ctx context.Context, step config.Step, tctx *render.Context, log config.LogOutput, sinks *sinks) error {
	switch s := step.(type) {
	case config.Command:
		return e.exec.Run(ctx, s.Template, tctx, log, sinks)
	case config.JobRef:
		return e.runRef(ctx, s, tctx)
	default:
		return fmt.Errorf("unsupported step %T", step)
	}
}

// runRef runs the target of a job reference with a context derived from
// the caller's.
func (e *Engine) runRef(ctx context.Context, ref config.JobRef, caller *render.Context) error {
	target, ok := e.cfg.Job(ref.Target)
	if !ok {
		return fmt.Errorf("%w: %q", config.ErrUnknownJob, ref.Target)
	}
	tctx, err := e.derive(caller, target, &ref)
	if err != nil {
		return err
	}
	return e.run(ctx, target, tctx)
}

// derive builds the starting context of job from parent: parent env and
// props, then the job's own, then the reference overrides. String overrides
// are rendered against the parent first. The iteration value is dropped.
func (e *Engine) derive(parent *render.Context, job *config.Job, ref *config.JobRef) (*render.Context, error) {
	tctx := parent.Clone()
	tctx.Job = job.Name
	tctx.ConfigDir = e.cfg.Dir
	tctx.Iter, tctx.HasIter = nil, false
	tctx.Thread = 0
	maps.Copy(tctx.Env, job.Env)
	maps.Copy(tctx.Props, job.Props)

	if ref != nil {
		for k, v := range ref.Env {
			rendered, err := e.renderer.Render(v, parent)
			if err != nil {
				return nil, err
			}
			tctx.Env[k] = rendered
		}
		for k, v := range ref.Props {
			if s, ok := v.(string); ok {
				rendered, err := e.renderer.Render(s, parent)
				if err != nil {
					return nil, err
				}
				v = rendered
			}
			tctx.Props[k] = v
		}
	}

	// Guards and dependencies run in the job's directory when it can be
	// rendered without an iteration value; otherwise the parent's is kept.
	if job.Dir != "" {
		if dir, err := e.renderer.Render(job.Dir, tctx); err == nil {
			tctx.Dir = fsutil.Resolve(e.cfg.Dir, dir)
		}
	}
	return tctx, nil
}

// transform renders the input template file into the output path.
func (e *Engine) transform(ctx context.Context, spec string, tctx *render.Context) error {
	logger := ctxlog.FromContext(ctx)

	tp, err := config.ParseTemplatePath(spec)
	if err != nil {
		return err
	}
	in, err := e.renderer.Render(tp.Input, tctx)
	if err != nil {
		return err
	}
	out, err := e.renderer.Render(tp.Output, tctx)
	if err != nil {
		return err
	}
	in, out = fsutil.Resolve(e.cfg.Dir, in), fsutil.Resolve(e.cfg.Dir, out)

	if e.dry {
		logger.Info("🧪 Dry run, template not written.", "input", in, "output", out)
		return nil
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", in, err)
	}
	content, err := e.renderer.Render(string(data), tctx)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureParentDir(out); err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	logger.Info("📝 Template rendered.", "input", in, "output", out)
	return nil
}

func describe(step config.Step) string {
	switch s := step.(type) {
	case config.Command:
		return s.Template
	case config.JobRef:
		return "job " + s.Target
	default:
		return fmt.Sprintf("%T", step)
	}
}
