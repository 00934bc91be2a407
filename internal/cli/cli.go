package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/modload/internal/app"
	"github.com/specialistvlad/modload/internal/fetch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
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

// usageError marks err as a command line mistake.
func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// Executor runs one subcommand with a validated configuration.
type Executor func(ctx context.Context, command string, cfg *app.Config) error

// Execute runs the command line. Usage and configuration errors exit with
// 2, any other failure with 1.
func Execute(ctx context.Context, args []string, outW io.Writer, exec Executor) error {
	root := NewRootCommand(outW, exec)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// NewRootCommand builds the modload command tree. Flags win over
// MODLOAD_* environment variables, which win over configuration files.
func NewRootCommand(outW io.Writer, exec Executor) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MODLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "modload",
		Short: "Asynchronous module loader for HCL manifests",
		Long: `modload loads an application made of HCL manifests. Each manifest
declares modules and their dependencies; dependencies are fetched from
disk or over HTTP in parallel and the application is bootstrapped once
nothing is left pending.

Examples:
  modload run --app app --root static
  modload bundle -o dist/app.hcl static/app.hcl
  modload graph --format json 'static/**/*.hcl'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath()))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringSlice("config", nil, "Configuration file (hcl, yaml, json or toml). Repeatable, later files win.")
	pf.String("app", "", "Root module name.")
	pf.String("root", "", "Prefix of relative locators.")
	pf.String("extension", "", "Extension appended to locators (default \".hcl\").")
	pf.Duration("timeout", 0, fmt.Sprintf("Fetch and readiness timeout (default %s).", fetch.DefaultTimeout))
	pf.String("dir", "", "Base directory of relative file locators.")
	pf.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	root.AddCommand(
		runCommand(v, exec),
		bundleCommand(v, exec),
		graphCommand(v, exec),
	)
	return root
}

func runCommand(v *viper.Viper, exec Executor) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the application and print the registered modules",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  execute(v, exec, "run"),
	}
	cmd.Flags().Int("healthcheck-port", 0, "Port for the /health and /metrics server. 0 is disabled.")
	cmd.Flags().Duration("wait-timeout", 0, "Give up if the application has not bootstrapped in time. 0 waits forever.")
	return cmd
}

func bundleCommand(v *viper.Viper, exec Executor) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle [ENTRY...]",
		Short: "Concatenate manifests in dependency order",
		Long: `bundle resolves the dependency graph of the entry manifests without
running them and writes every reachable manifest, dependencies first, as a
single manifest. Entries are files, directories or doublestar patterns.`,
		Args: cobra.ArbitraryArgs,
		RunE: execute(v, exec, "bundle"),
	}
	cmd.Flags().StringP("output", "o", "", "Write the bundle to this file instead of stdout.")
	cmd.Flags().Bool("watch", false, "Rebuild the bundle when a source changes.")
	return cmd
}

func graphCommand(v *viper.Viper, exec Executor) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [ENTRY...]",
		Short: "Print the resolved dependency graph",
		Args:  cobra.ArbitraryArgs,
		RunE:  execute(v, exec, "graph"),
	}
	cmd.Flags().String("format", "yaml", "Report format. Options: 'yaml' or 'json'.")
	return cmd
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func execute(v *viper.Viper, exec Executor, command string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
		cfg, err := buildConfig(v, cmd, args)
		if err != nil {
			return err
		}
		return exec(cmd.Context(), command, cfg)
	}
}

// buildConfig reads the flags of cmd through v and validates the result.
func buildConfig(v *viper.Viper, cmd *cobra.Command, args []string) (*app.Config, error) {
	has := func(name string) bool { return cmd.Flags().Lookup(name) != nil }

	cfg := app.Config{
		ConfigPaths: v.GetStringSlice("config"),
		App:         v.GetString("app"),
		Root:        v.GetString("root"),
		Extension:   v.GetString("extension"),
		Timeout:     v.GetDuration("timeout"),
		Dir:         v.GetString("dir"),
		Entries:     args,
		LogFormat:   strings.ToLower(v.GetString("log-format")),
		LogLevel:    strings.ToLower(v.GetString("log-level")),
	}
	if has("healthcheck-port") {
		cfg.HealthcheckPort = v.GetInt("healthcheck-port")
	}
	if has("wait-timeout") {
		cfg.WaitTimeout = v.GetDuration("wait-timeout")
	}
	if has("output") {
		cfg.Output = v.GetString("output")
		cfg.Watch = v.GetBool("watch")
	}
	if has("format") {
		cfg.Format = strings.ToLower(v.GetString("format"))
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}
