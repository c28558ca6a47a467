package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/pageaudit/internal/artifact"
	"github.com/nao1215/pageaudit/internal/config"
)

//go:embed templates/pageaudit.yaml
var configTemplate embed.FS

const templatePath = "templates/pageaudit.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pageaudit configuration file",
		Long: `Init writes a commented .pageaudit file to the current directory.

The file documents the suite settings: pages with their expected
headings, the header elements checked on every page, CAPTCHA selectors,
resource filters, and the cookie and headers sent with each request.

Examples:
  # Create .pageaudit in the current directory
  pageaudit init

  # Create the file at a specific path
  pageaudit init -o configs/staging.yaml

  # Overwrite an existing file
  pageaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing configuration file")

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
	if err := artifact.EnsureParent(outputPath); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to define suites, then run them with:")
	fmt.Fprintln(out, "  pageaudit run <suite>")
	return nil
}
