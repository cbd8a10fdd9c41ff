package engine

import (
	"sync"

	"github.com/specialistvlad/jobgrid/internal/config"
)

// completion is the run-once state of one job.
type completion struct {
	// run serializes concurrent invocations of the job.
	run sync.Mutex
	// mu guards attempted.
	mu        sync.Mutex
	attempted bool
}

// Tracker holds the completion flag of every job for the lifetime of one
// engine. Flags are never reset.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*completion
	// order keeps snapshot output stable.
	order []string
}

// NewTracker creates a tracker with every named job not yet attempted.
func NewTracker(names []string) *Tracker {
	t := &Tracker{jobs: make(map[string]*completion, len(names))}
	for _, name := range names {
		t.entry(name)
	}
	return t
}

func (t *Tracker) entry(name string) *completion {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.jobs[name]
	if !ok {
		c = &completion{}
		t.jobs[name] = c
		t.order = append(t.order, name)
	}
	return c
}

// Lock acquires the run lock of a job and returns its release function.
func (t *Tracker) Lock(name string) func() {
	c := t.entry(name)
	c.run.Lock()
	return c.run.Unlock
}

// ShouldRun decides whether a job runs. A job with guard conditions runs
// when every condition passes; all of them are evaluated each time and
// the completion flag is ignored. Otherwise the job runs until it has been
// attempted once.
func (t *Tracker) ShouldRun(job *config.Job, guard func(condition string) bool) bool {
	if len(job.When) > 0 {
		ok := true
		for _, cond := range job.When {
			if !guard(cond) {
				ok = false
			}
		}
		return ok
	}
	return !t.Attempted(job.Name)
}

// Attempted reports whether the job's run has concluded at least once.
func (t *Tracker) Attempted(name string) bool {
	c := t.entry(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempted
}

// MarkAttempted sets the completion flag of a job.
func (t *Tracker) MarkAttempted(name string) {
	c := t.entry(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempted = true
}

// Snapshot returns the completion flag of every known job.
func (t *Tracker) Snapshot() map[string]bool {
	t.mu.Lock()
	names := append([]string(nil), t.order...)
	t.mu.Unlock()

	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = t.Attempted(name)
	}
	return out
}
