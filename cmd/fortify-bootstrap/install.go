package main

import (
	"github.com/spf13/cobra"

	"github.com/fortify-report/bootstrap/internal/model"
)

// NewInstallCmd creates the install command.
func NewInstallCmd(newEnv environmentFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Check the workstation, install dependencies and start the tool",
		Long: `Install runs the full checklist in order:

  1. Python runtime         (fatal)
  2. Python version >= 3.8  (warning)
  3. pip                    (fatal)
  4. uv, installed via pip if missing (fatal)
  5. pyproject.toml         (fatal)
  6. uv sync                (fatal)
  7. config/config.yaml     (warning)

A fatal failure stops the checklist and exits with status 1. Warnings are
listed at the end and never change the exit status. When every fatal check
passes the tool is started with "uv run python fortify_gui.py".

Examples:
  # Prepare the project in the current directory
  fortify-bootstrap install

  # Prepare another checkout without starting the tool
  fortify-bootstrap install -C ~/src/fortify-report --no-launch

  # Reinstall uv and all dependencies
  fortify-bootstrap install --force

  # Machine-readable result and a Markdown report for a ticket
  fortify-bootstrap install --json --report bootstrap-report.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBootstrap(cmd, model.ModeInstall, newEnv)
		},
	}

	addBootstrapFlags(cmd)
	cmd.Flags().Bool("no-launch", false, "Stop after the checks instead of starting the tool")

	return cmd
}
