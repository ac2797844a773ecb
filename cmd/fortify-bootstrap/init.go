package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fortify-report/bootstrap/internal/config"
)

//go:embed templates/fortify-bootstrap.yaml
var configTemplate embed.FS

// templatePath is the location of the template inside configTemplate.
const templatePath = "templates/fortify-bootstrap.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new fortify-bootstrap configuration file",
		Long: `Initialize creates a new .fortify-bootstrap.yaml configuration file in the
current directory.

The generated file documents every setting with its default value:
- Minimum Python version, manifest and entry point names
- Package manager and install retry count
- Shell and console encoding overrides

Examples:
  # Create .fortify-bootstrap.yaml in current directory
  fortify-bootstrap init

  # Create config file at a specific path
  fortify-bootstrap init -o ~/.config/fortify-bootstrap/config.yaml

  # Force overwrite existing file
  fortify-bootstrap init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to adjust settings such as:")
	fmt.Fprintln(out, "  - The minimum Python version")
	fmt.Fprintln(out, "  - Interpreter and pip names to try")
	fmt.Fprintln(out, "  - The console encoding on non-UTF-8 Windows systems")

	return nil
}
