// Package loader implements config.Loader on top of the codec package.
package loader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/specialistvlad/jobgrid/internal/codec"
	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
)

// Loader reads configuration files of any format supported by codec.
type Loader struct {
	files config.FileLoader
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a Loader that reads data files through codec.
func NewLoader() *Loader {
	return &Loader{files: codec.FileLoader{}}
}

// Load decodes path into the model, merges the dotenv file and property
// files, and validates the result. Nothing is returned unless the whole
// configuration is valid.
func (l *Loader) Load(ctx context.Context, path string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loader started.", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &config.ConfigError{Err: fmt.Errorf("failed to resolve %s: %w", path, err)}
	}

	raw, err := codec.DecodeFile(abs)
	if err != nil {
		return nil, &config.ConfigError{Err: fmt.Errorf("%w: %w", config.ErrInvalidShape, err)}
	}
	logger.Debug("Configuration file parsed.", "path", abs)

	cfg, err := config.Decode(raw, abs)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration decoded into model.", "jobs", len(cfg.Jobs))

	if cfg.Dotenv {
		env, err := config.ReadDotenv(cfg.Dir)
		if err != nil {
			return nil, err
		}
		if cfg.Env == nil {
			cfg.Env = make(map[string]string, len(env))
		}
		maps.Copy(cfg.Env, env)
		logger.Debug("Dotenv file merged.", "variables", len(env))
	}

	var errs []error
	if cfg.Props, err = l.mergePropsFile(cfg.Props, cfg.PropsFile); err != nil {
		errs = append(errs, &config.ConfigError{Err: err})
	}
	for _, j := range cfg.Jobs {
		if j.Props, err = l.mergePropsFile(j.Props, j.PropsFile); err != nil {
			errs = append(errs, &config.ConfigError{Job: j.Name, Err: err})
		}
	}

	if err := config.Validate(ctx, cfg, l.files); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	logger.Debug("Configuration loaded.", "jobs", cfg.JobNames())
	return cfg, nil
}

// mergePropsFile overlays the map stored in path onto props. File values
// win over inline ones.
func (l *Loader) mergePropsFile(props map[string]any, path string) (map[string]any, error) {
	if path == "" {
		return props, nil
	}

	data, err := l.files.LoadFile(path)
	if err != nil {
		return props, fmt.Errorf("%w: %w", config.ErrPropsFile, err)
	}
	fileProps, ok := data.(map[string]any)
	if !ok {
		return props, fmt.Errorf("%w: %s: root must be a map", config.ErrPropsFile, path)
	}

	merged := make(map[string]any, len(props)+len(fileProps))
	maps.Copy(merged, props)
	maps.Copy(merged, fileProps)
	return merged, nil
}
