package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/specialistvlad/jobgrid/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that set flags, e.g.
// JOBGRID_LOG_LEVEL=debug.
const EnvPrefix = "JOBGRID"

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly (help was
// printed), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var parsed *app.Config
	cmd := &cobra.Command{
		Use:   "jobgrid --config <path> [--job <name>] [--dry]",
		Short: "jobgrid - a declarative job runner.",
		Long: `jobgrid runs the jobs declared in a configuration file.

Jobs are made of shell steps, references to other jobs, templated file
transforms and iteration policies. Configuration files may be written in
JSON, YAML, TOML or HCL; the format is picked by extension.

Without --job every job runs once, in declared order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(v)
			if err != nil {
				return err
			}
			parsed = cfg
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Path to the configuration file (required).")
	flags.StringP("job", "j", "", "Run only this job. All jobs run when empty.")
	flags.Bool("dry", false, "Render and report commands without running them.")
	flags.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.Int("workers", runtime.NumCPU(), "Number of workers used by jobs with 'parallel: true'.")
	flags.Int("healthcheck-port", 0, "Port for the HTTP health and status server. 0 is disabled.")

	if err := v.BindPFlags(flags); err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	if parsed == nil {
		slog.Debug("Help requested, exiting.")
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", parsed)
	return parsed, false, nil
}

func configFrom(v *viper.Viper) (*app.Config, error) {
	logFormat := strings.ToLower(v.GetString("log-format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(v.GetString("log-level"))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		ConfigPath:      v.GetString("config"),
		Job:             v.GetString("job"),
		DryRun:          v.GetBool("dry"),
		HealthcheckPort: v.GetInt("healthcheck-port"),
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     v.GetInt("workers"),
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("%v\n\nRun 'jobgrid --help' for usage.", err)}
	}
	return cfg, nil
}
