package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fortify-report/bootstrap/internal/config"
	"github.com/fortify-report/bootstrap/internal/host"
	"github.com/fortify-report/bootstrap/internal/log"
	"github.com/fortify-report/bootstrap/internal/model"
	"github.com/fortify-report/bootstrap/internal/pipeline"
	"github.com/fortify-report/bootstrap/internal/report"
	"github.com/fortify-report/bootstrap/internal/shell"
)

// environmentFunc builds the host environment a command inspects and acts on.
type environmentFunc func(cfg *config.Config, adapter *shell.Adapter, logger *slog.Logger, cmd *cobra.Command) host.Environment

// osEnvironment returns the real machine. With --json the streamed output
// of pip and uv goes to stderr so stdout carries only the report.
func osEnvironment(cfg *config.Config, adapter *shell.Adapter, logger *slog.Logger, cmd *cobra.Command) host.Environment {
	stdout := cmd.OutOrStdout()
	if cfg.JSONOutput {
		stdout = cmd.ErrOrStderr()
	}
	return host.NewOS(cfg.Dir, adapter,
		host.WithLogger(logger),
		host.WithStdio(cmd.InOrStdin(), stdout, cmd.ErrOrStderr()),
	)
}

// addBootstrapFlags registers the flags shared by install and run.
func addBootstrapFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("skip-version-check", false, "Skip the Python version check")
	cmd.Flags().BoolP("force", "f", false, "Reinstall uv and the dependencies even if present")
	cmd.Flags().Bool("json", false, "Output the result in JSON format")
	cmd.Flags().StringP("report", "r", "", "Write a Markdown report to the given file")
}

// getVerboseFlag gets the verbose flag from command or persistent flags.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig builds configuration from defaults, the config file and
// command-line flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Dir, err = flags.GetString("dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly named file must exist; a searched one is optional.
	path := config.FindConfigFile(cfg.ConfigFilePath, cfg.Dir)
	if cfg.ConfigFilePath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}
	if path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		file.Apply(cfg)
	}

	if flags.Changed("shell") {
		if cfg.Shell, err = flags.GetString("shell"); err != nil {
			return nil, err
		}
	}
	if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.SkipVersionCheck, err = flags.GetBool("skip-version-check"); err != nil {
		return nil, err
	}
	if cfg.Force, err = flags.GetBool("force"); err != nil {
		return nil, err
	}
	if cfg.JSONOutput, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if flags.Lookup("no-launch") != nil {
		if cfg.NoLaunch, err = flags.GetBool("no-launch"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger creates a secure logger on w.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONOutput {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// runBootstrap executes the checklist for mode and, when it passes, hands
// off to the tool.
func runBootstrap(cmd *cobra.Command, mode model.Mode, newEnv environmentFunc) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	runID := uuid.NewString()
	adapter := cfg.Adapter()
	logger := setupLogger(cmd.ErrOrStderr(), cfg).With("run", runID, "mode", string(mode))

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := newEnv(cfg, adapter, logger, cmd)
	opts := pipeline.NewOptions(cfg, adapter)

	steps := pipeline.InstallSteps(opts)
	if mode == model.ModeRun {
		steps = pipeline.RunSteps(opts)
	}

	// The checklist goes to stderr when stdout is reserved for JSON.
	consoleOut := cmd.OutOrStdout()
	if cfg.JSONOutput {
		consoleOut = cmd.ErrOrStderr()
	}
	console := report.NewConsole(consoleOut, adapter,
		report.WithNoColor(cfg.NoColor),
		report.WithConsoleVerbose(cfg.Verbose),
	)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithObserver(console),
		pipeline.WithMode(mode),
		pipeline.WithShell(adapter.Name()),
		pipeline.WithRunID(runID),
	)
	p.AddSteps(steps...)

	console.Header(mode, p.StepCount())

	result, runErr := p.Run(ctx, env)
	if runErr != nil {
		logger.Warn("bootstrap interrupted", "error", runErr)
	}
	if err := console.Err(); err != nil {
		return fmt.Errorf("failed to write console output: %w", err)
	}

	if err := writeResult(cmd, cfg, console, result); err != nil {
		return err
	}

	if code := result.ExitCode(); code != 0 {
		failure := result.Err()
		if failure != nil {
			logger.Error("bootstrap failed", "error", failure)
		}
		return &exitError{code: code, err: failure}
	}

	if cfg.NoLaunch {
		logger.Info("launch disabled")
		return nil
	}

	return launchTool(ctx, env, console, pipeline.NewLauncher(opts, logger), logger)
}

// writeResult prints the summary and writes the optional report file.
func writeResult(cmd *cobra.Command, cfg *config.Config, console *report.Console, result *model.PipelineResult) error {
	var summary report.Writer = console
	if cfg.JSONOutput {
		summary = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint(), report.WithVersion(getVersion()))
	}
	writers := []report.Writer{summary}

	var reportFile *os.File
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		reportFile = f
		writers = append(writers, report.NewMarkdownWriter(f))
	}

	if _, err := report.NewMultiWriter(writers...).Write(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if reportFile == nil {
		return nil
	}
	if err := reportFile.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !cfg.JSONOutput {
		console.ReportWritten(cfg.ReportFile)
	}
	return nil
}

// createReportFile creates the Markdown report file and its directory.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, nil
}

// launchTool starts the tool and waits for it. The tool's own exit status
// is its business; only a failure to start it is reported.
func launchTool(ctx context.Context, env host.Environment, console *report.Console, launcher *pipeline.Launcher, logger *slog.Logger) error {
	launcher.OnLaunch(console.Launching)

	err := launcher.Launch(ctx, env)
	var exitErr *host.ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		logger.Info("tool exited", "code", exitErr.Code)
		return nil
	default:
		console.LaunchFailed(err, launcher.Remediation())
		return &exitError{code: 1, err: err}
	}
}
