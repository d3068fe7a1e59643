package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/urlsentry.yml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = ".urlsentry.yml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new urlsentry configuration file",
		Long: `Initialize creates a new .urlsentry.yml configuration file in the current directory.

The generated file includes:
- Commented placeholders for the Safe Browsing and AbuseIPDB API keys
- Default settings for timeouts and batch size
- Documentation for all available options

Examples:
  # Create .urlsentry.yml in current directory
  urlsentry init

  # Create config file at a specific path
  urlsentry init -o myconfig.yml

  # Force overwrite existing file
  urlsentry init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
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

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/urlsentry.yml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// API keys live in this file, so keep it owner-readable only.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure settings such as:")
	fmt.Println("  - Safe Browsing and AbuseIPDB API keys")
	fmt.Println("  - Request timeout and batch size")
	fmt.Println("  - A custom classification policy file")

	return nil
}
