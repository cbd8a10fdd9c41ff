package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/testutil"
)

// harness wires an engine to buffers and a temp config directory.
type harness struct {
	dir    string
	stdout *testutil.SafeBuffer
	stderr *testutil.SafeBuffer
	logs   *testutil.SafeBuffer
	ctx    context.Context
	engine *Engine
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell based test")
	}
}

// newHarness builds an engine for jobs. Jobs without a Dir run in the
// config directory.
func newHarness(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	skipOnWindows(t)

	h := &harness{
		dir:    t.TempDir(),
		stdout: &testutil.SafeBuffer{},
		stderr: &testutil.SafeBuffer{},
		logs:   &testutil.SafeBuffer{},
	}
	cfg.Dir = h.dir
	cfg.Path = filepath.Join(h.dir, "jobs.yaml")
	for _, j := range cfg.Jobs {
		if j.Dir == "" {
			j.Dir = "."
		}
		if j.Iters == nil {
			j.Iters = config.SingleRun{}
		}
	}

	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h.ctx = ctxlog.WithLogger(context.Background(), logger)
	h.engine = New(cfg, append([]Option{WithOutput(h.stdout, h.stderr)}, opts...)...)

	t.Cleanup(func() {
		if os.Getenv("JOBGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.logs.String())
		}
	})
	return h
}

func (h *harness) path(name string) string {
	return filepath.Join(h.dir, filepath.FromSlash(name))
}

func (h *harness) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(h.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func cmds(templates ...string) []config.Step {
	steps := make([]config.Step, len(templates))
	for i, tmpl := range templates {
		steps[i] = config.Command{Template: tmpl}
	}
	return steps
}

func ptr(n int64) *int64 { return &n }

func loggerContext(w *testutil.SafeBuffer) context.Context {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}
