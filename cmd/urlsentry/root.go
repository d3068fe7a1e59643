package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for urlsentry.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urlsentry",
		Short: "Assess the safety of URLs before visiting them",
		Long: `urlsentry scans URLs and produces a 0-100 safety score.

It checks domain registration age, TLS configuration, threat databases,
IP reputation, server hygiene (security headers, cookies, exposed files),
and performs a sandboxed page load that classifies every network request
the page triggers. The result is a score with a full audit trail of
deductions.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
