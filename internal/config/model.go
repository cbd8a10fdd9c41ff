package config

// Config is the unified, format-agnostic representation of a configuration
// file. It is immutable once loaded.
type Config struct {
	// Path is the file the configuration was read from.
	Path string
	// Dir is the directory of Path. Relative paths resolve against it.
	Dir string

	Env       map[string]string
	Dotenv    bool
	Props     map[string]any
	PropsFile string
	// Log is the default log output for every job. Nil means stdout.
	Log  LogOutput
	Jobs []*Job
}

// Job is one named unit of work.
type Job struct {
	Name string
	// Dir is a working directory template. Empty means inherited.
	Dir          string
	Env          map[string]string
	Props        map[string]any
	PropsFile    string
	Steps        []Step
	Iters        Iteration
	Depends      []Step
	Templates    []string
	Parallel     ExecutionType
	IgnoreErrors bool
	// Log overrides Config.Log when set.
	Log     LogOutput
	When    []string
	Message string
}

// Job looks a job up by name.
func (c *Config) Job(name string) (*Job, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

// JobNames returns the job names in declared order.
func (c *Config) JobNames() []string {
	names := make([]string, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		names = append(names, j.Name)
	}
	return names
}

// LogFor returns the effective log output of a job.
func (c *Config) LogFor(j *Job) LogOutput {
	if j != nil && j.Log != nil {
		return j.Log
	}
	if c.Log != nil {
		return c.Log
	}
	return ToStdout{Enabled: true}
}

// References lists the targets of every JobRef in depends and steps, in
// that order. Duplicates are kept.
func (j *Job) References() []string {
	var refs []string
	for _, group := range [][]Step{j.Depends, j.Steps} {
		for _, s := range group {
			if ref, ok := s.(JobRef); ok {
				refs = append(refs, ref.Target)
			}
		}
	}
	return refs
}

// --- Steps ---

// Step is either a Command or a JobRef.
type Step interface {
	isStep()
}

// Command is a shell command template.
type Command struct {
	Template string
}

// JobRef invokes another job with optional overrides.
type JobRef struct {
	Target string
	Props  map[string]any
	Env    map[string]string
}

func (Command) isStep() {}
func (JobRef) isStep()  {}

// --- Iteration policies ---

// Iteration describes how many times, and with which values, a job's
// steps repeat.
type Iteration interface {
	isIteration()
}

// SingleRun runs once without an iteration value.
type SingleRun struct{}

// InfiniteLoop counts up from zero until the process is terminated.
type InfiniteLoop struct{}

// Range counts from From (default 0) towards To, exclusive, by By
// (default 1).
type Range struct {
	From *int64
	To   int64
	By   *int64
}

// ValueList yields each value in order.
type ValueList struct {
	Values []any
}

// ExternalFile yields the elements of the array stored in Path.
type ExternalFile struct {
	Path string
}

func (SingleRun) isIteration()    {}
func (InfiniteLoop) isIteration() {}
func (Range) isIteration()        {}
func (ValueList) isIteration()    {}
func (ExternalFile) isIteration() {}

// Bounds returns the effective start and step of the range.
func (r Range) Bounds() (start, step int64) {
	start, step = 0, 1
	if r.From != nil {
		start = *r.From
	}
	if r.By != nil {
		step = *r.By
	}
	return start, step
}

// --- Log outputs ---

// LogOutput decides where a command's stdout goes.
type LogOutput interface {
	isLogOutput()
}

// ToStdout forwards output to stdout when enabled, discards it otherwise.
type ToStdout struct {
	Enabled bool
}

// FilePath appends output to the file named by the rendered template.
type FilePath struct {
	Template string
}

func (ToStdout) isLogOutput() {}
func (FilePath) isLogOutput() {}

// --- Execution types ---

// ExecutionType selects sequential or pooled iteration.
type ExecutionType interface {
	// Workers returns the pool size, or 0 for sequential execution.
	Workers(defaultWorkers int) int
}

// Parallel uses the engine's default pool size when true.
type Parallel bool

// WithThreads uses a pool of exactly n workers.
type WithThreads int

func (p Parallel) Workers(defaultWorkers int) int {
	if !p {
		return 0
	}
	return max(defaultWorkers, 1)
}

func (n WithThreads) Workers(int) int {
	return max(int(n), 1)
}
