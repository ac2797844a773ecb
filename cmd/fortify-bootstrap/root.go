package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitError carries a process exit status for a failure that was already
// reported to the operator, and the failure itself when there is one.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("exit status %d: %v", e.code, e.err)
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// NewRootCmd creates the root command for fortify-bootstrap.
func NewRootCmd() *cobra.Command {
	return newRootCmd(osEnvironment)
}

func newRootCmd(newEnv environmentFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fortify-bootstrap",
		Short: "Prepare a workstation and start the Fortify report tool",
		Long: `fortify-bootstrap checks that a workstation can run the Fortify report tool,
fixes what it can, and hands off to the tool.

The install command runs the full checklist: Python runtime, Python version,
pip, the uv package manager, the project manifest, dependency sync and the
tool configuration. The run command only verifies that the prerequisites are
still in place before starting the tool.

Every failed check prints what went wrong and what to do next.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("dir", "C", ".", "Project directory containing pyproject.toml")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Path to configuration file (default: search .fortify-bootstrap.yaml)")
	cmd.PersistentFlags().String("shell", "", "Invocation context: posix or windows (default: detect)")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Add subcommands
	cmd.AddCommand(NewInstallCmd(newEnv))
	cmd.AddCommand(NewRunCmd(newEnv))
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
