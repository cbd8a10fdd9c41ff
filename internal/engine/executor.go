package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"sync"

	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/fsutil"
	"github.com/specialistvlad/jobgrid/internal/render"
)

// ProcessError is a command that could not be spawned, waited for or
// whose output could not be routed, or that exited with a non-zero status.
type ProcessError struct {
	Command string
	// ExitCode is -1 when the process did not exit normally.
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Executor runs Command steps.
type Executor struct {
	renderer render.Renderer
	stdout   io.Writer
	stderr   io.Writer
	dry      bool
}

// Run renders a command template and runs it through the platform shell.
// A nil error means the command exited with status zero, or that it was
// only reported because of dry-run mode.
func (x *Executor) Run(ctx context.Context, template string, tctx *render.Context, log config.LogOutput, sinks *sinks) error {
	logger := ctxlog.FromContext(ctx)

	body, err := x.renderer.Render(template, tctx)
	if err != nil {
		return err
	}

	if x.dry {
		logger.Info("🧪 Dry run, command not executed.", "command", body, "dir", tctx.Dir)
		return nil
	}

	stdout, err := x.output(tctx, log, sinks)
	if err != nil {
		return &ProcessError{Command: body, ExitCode: -1, Err: err}
	}

	cmd := shellCommand(body)
	cmd.Env = mergeEnv(os.Environ(), tctx.Env)
	cmd.Dir = tctx.Dir
	cmd.Stdout = stdout
	cmd.Stderr = x.stderr

	logger.Info("▶️ Running step.", "command", body)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ProcessError{Command: body, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return &ProcessError{Command: body, ExitCode: -1, Err: err}
	}
	logger.Debug("Command finished successfully.", "command", body)
	return nil
}

func (x *Executor) output(tctx *render.Context, log config.LogOutput, sinks *sinks) (io.Writer, error) {
	switch l := log.(type) {
	case config.ToStdout:
		if !l.Enabled {
			return io.Discard, nil
		}
		return x.stdout, nil
	case config.FilePath:
		path, err := x.renderer.Render(l.Template, tctx)
		if err != nil {
			return nil, err
		}
		return sinks.writer(fsutil.Resolve(tctx.ConfigDir, path))
	default:
		return x.stdout, nil
	}
}

func shellCommand(body string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", body)
	}
	return exec.Command("/bin/sh", "-c", body)
}

// mergeEnv appends env to base in key order. exec keeps the last value of
// a duplicated key, so env wins.
func mergeEnv(base []string, env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(base)+len(keys))
	out = append(out, base...)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// syncWriter serializes writes from concurrent iterations.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// newSyncWriter wraps w unless it is a file, which child processes write
// to directly.
func newSyncWriter(w io.Writer) io.Writer {
	if _, ok := w.(*os.File); ok {
		return w
	}
	if _, ok := w.(*syncWriter); ok {
		return w
	}
	return &syncWriter{w: w}
}

// filePool holds the log files of one job run, keyed by path. A file is
// open while at least one scope holds it, so iterations writing to the same
// path share a handle and a path used by a single iteration is closed when
// that iteration ends.
type filePool struct {
	mu    sync.Mutex
	files map[string]*pooledFile
}

type pooledFile struct {
	f    *os.File
	w    *syncWriter
	refs int
}

func newFilePool() *filePool {
	return &filePool{files: map[string]*pooledFile{}}
}

func (p *filePool) acquire(path string) (io.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pf, ok := p.files[path]; ok {
		pf.refs++
		return pf.w, nil
	}
	f, err := fsutil.OpenAppend(path)
	if err != nil {
		return nil, err
	}
	pf := &pooledFile{f: f, w: &syncWriter{w: f}, refs: 1}
	p.files[path] = pf
	return pf.w, nil
}

func (p *filePool) release(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pf, ok := p.files[path]
	if !ok {
		return nil
	}
	pf.refs--
	if pf.refs > 0 {
		return nil
	}
	delete(p.files, path)
	if err := pf.f.Close(); err != nil {
		return fmt.Errorf("failed to close log file %s: %w", path, err)
	}
	return nil
}

// open reports how many files are currently open.
func (p *filePool) open() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}

// scope starts a set of leases released together by Close.
func (p *filePool) scope() *sinks {
	return &sinks{pool: p, held: map[string]io.Writer{}}
}

// sinks are the log files leased by one phase of a job run: the gate and
// dependencies, or one iteration.
type sinks struct {
	pool *filePool
	mu   sync.Mutex
	held map[string]io.Writer
}

func newSinks() *sinks {
	return newFilePool().scope()
}

func (s *sinks) writer(path string) (io.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.held[path]; ok {
		return w, nil
	}
	w, err := s.pool.acquire(path)
	if err != nil {
		return nil, err
	}
	s.held[path] = w
	return w, nil
}

// Close releases every lease and reports the failures.
func (s *sinks) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path := range s.held {
		if err := s.pool.release(path); err != nil {
			errs = append(errs, err)
		}
	}
	s.held = map[string]io.Writer{}
	return errors.Join(errs...)
}
