// Package main provides the entry point for the doctor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for doctor.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Health checker for the Tor directory consensus process",
		Long: `doctor parses downloaded network status consensuses and votes, links
votes to their consensuses, and converts detected anomalies into two
warning files: one with everything currently applicable and one with
only the warnings that newly qualify under their cooldown.

Each invocation performs a single run and exits; schedule it externally
(for example from cron, once per consensus period).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
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
