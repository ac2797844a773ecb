package main

import (
	"github.com/spf13/cobra"

	"github.com/fortify-report/bootstrap/internal/model"
)

// NewRunCmd creates the run command.
func NewRunCmd(newEnv environmentFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Verify the prerequisites and start the tool",
		Long: `Run performs the fast checks on a workstation that was already prepared with
install:

  1. Python runtime  (fatal)
  2. pip             (fatal)
  3. uv              (fatal, installed via pip if missing)
  4. fortify_gui.py  (warning)

It then starts the tool. Nothing is synced, so run is the everyday command.

Examples:
  fortify-bootstrap run
  fortify-bootstrap run -C ~/src/fortify-report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBootstrap(cmd, model.ModeRun, newEnv)
		},
	}

	addBootstrapFlags(cmd)

	return cmd
}
