package config

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateJob           = errors.New("duplicate job name")
	ErrUnknownJob             = errors.New("unknown job")
	ErrMalformedRange         = errors.New("malformed range")
	ErrMalformedTemplatePath  = errors.New("malformed template path")
	ErrPropsFile              = errors.New("invalid props file")
	ErrMalformedIterationFile = errors.New("malformed iteration file")
	ErrJobCycle               = errors.New("job reference cycle")
	ErrInvalidShape           = errors.New("invalid configuration shape")
	ErrDotenv                 = errors.New("malformed dotenv file")
)

// ConfigError is a configuration problem, optionally tied to a job.
type ConfigError struct {
	Job string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Job == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("job %q: %v", e.Job, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func jobErr(job string, sentinel error, format string, args ...any) error {
	return &ConfigError{Job: job, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)}
}
