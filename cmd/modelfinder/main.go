// Modelfinder looks up the marketing model name of an Apple device from its
// serial number.
//
// It derives the 3- or 4-character model key from an 11- or 12-character
// serial and asks Apple's public product endpoint for the matching name.
// Lookups can also be routed through a modelfinder-server on the local
// network, found by address or over mDNS.
//
// Usage:
//
//	modelfinder [command] [flags]
//
// Running without arguments launches the interactive lookup screen.
// See 'modelfinder --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/version"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelfinder",
	Short: "Apple Model Finder",
	Long: `Look up the marketing model name of an Apple device from its serial number.

Serial numbers of 11 or 12 characters are reduced to their 3- or 4-character
model key, which is sent to Apple's product endpoint. A bare key can be
given directly.

If no command is specified, the interactive lookup screen will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// MODELFINDER_LOG_LEVEL; logs go to stderr
		return logging.InitializeFromEnv()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the TUI when no subcommand provided
		return runTUI(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("modelfinder %s (commit: %s)\n", version.Version, version.Commit)
	},
}
