package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/graph"
)

// Validate checks the static invariants of a decoded configuration and
// reports every violation at once. files is used to check that iteration
// files hold arrays; when nil that check is skipped.
func Validate(ctx context.Context, cfg *Config, files FileLoader) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Validating configuration.", "jobs", len(cfg.Jobs))

	var errs []error
	seen := make(map[string]struct{}, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		if _, dup := seen[j.Name]; dup {
			errs = append(errs, jobErr(j.Name, ErrDuplicateJob, "%q is declared more than once", j.Name))
		}
		seen[j.Name] = struct{}{}
	}

	for _, j := range cfg.Jobs {
		for _, target := range j.References() {
			if _, ok := seen[target]; !ok {
				errs = append(errs, jobErr(j.Name, ErrUnknownJob, "%q is referenced but not declared", target))
			}
		}
		for _, spec := range j.Templates {
			if _, err := ParseTemplatePath(spec); err != nil {
				errs = append(errs, &ConfigError{Job: j.Name, Err: err})
			}
		}
		if err := validateIteration(j.Iters, files); err != nil {
			errs = append(errs, &ConfigError{Job: j.Name, Err: err})
		}
		if len(j.Steps) == 0 && len(j.Depends) == 0 {
			logger.Warn("Job has neither steps nor dependencies.", "job", j.Name)
		}
	}

	if err := detectCycles(ctx, cfg); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		logger.Debug("Configuration validation failed.", "problems", len(errs))
		return errors.Join(errs...)
	}
	logger.Debug("Configuration validation passed.")
	return nil
}

// ValidateRange reports ErrMalformedRange when the step is zero or points
// away from To.
func ValidateRange(r Range) error {
	start, step := r.Bounds()
	if step == 0 {
		return fmt.Errorf("%w: step must not be zero", ErrMalformedRange)
	}
	if (r.To > start && step < 0) || (r.To < start && step > 0) {
		return fmt.Errorf("%w: step %d never reaches %d from %d", ErrMalformedRange, step, r.To, start)
	}
	return nil
}

func validateIteration(it Iteration, files FileLoader) error {
	switch v := it.(type) {
	case Range:
		return ValidateRange(v)
	case ExternalFile:
		if files == nil {
			return nil
		}
		data, err := files.LoadFile(v.Path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedIterationFile, err)
		}
		if _, ok := data.([]any); !ok {
			return fmt.Errorf("%w: %s: root must be an array, got %s", ErrMalformedIterationFile, v.Path, kindOf(data))
		}
	}
	return nil
}

// detectCycles builds the job reference graph and rejects loops. Unknown
// targets are skipped; they are reported separately.
func detectCycles(ctx context.Context, cfg *Config) error {
	g := graph.New()
	for _, j := range cfg.Jobs {
		g.AddNode(j.Name)
	}
	for _, j := range cfg.Jobs {
		for _, target := range j.References() {
			if _, ok := cfg.Job(target); !ok {
				continue
			}
			if err := g.AddEdge(j.Name, target); err != nil {
				return fmt.Errorf("failed to build job graph: %w", err)
			}
		}
	}

	var cycle *graph.CycleError
	if err := g.DetectCycles(); err != nil {
		if errors.As(err, &cycle) {
			return &ConfigError{Job: cycle.Path[0], Err: fmt.Errorf("%w: %w", ErrJobCycle, err)}
		}
		return err
	}

	logger := ctxlog.FromContext(ctx)
	for _, j := range cfg.Jobs {
		refs, err := g.References(j.Name)
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			logger.Debug("Job references resolved.", "job", j.Name, "references", refs)
		}
	}
	return nil
}
