// Tramesniff captures and decodes serial frames from a remote sniffer.
//
// The sniffer is a small device on a serial link: it is told which line
// settings to sniff, reports READY_TO_SNIFF and then sends every frame it
// sees as a line of '0'/'1' characters. Tramesniff shows each frame as raw
// bits, hex bytes and decoded text, highlights filter matches in all three
// at once and keeps a capture log for export.
//
// Usage:
//
//	tramesniff [command] [flags]
//
// See 'tramesniff --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/logging"
	"github.com/muurk/tramesniff/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	logLevel string
	logFile  string
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:   "tramesniff",
	Short: "Serial frame sniffer and decoder",
	Long: `Capture frames from a serial sniffer device and decode them.

Every frame is shown three ways: raw bits, hex bytes and text decoded
through a user dictionary. Filter rules highlight bit, hex or text
patterns across all three views at once. Captured frames are kept in a
local database and can be exported to CSV or JSON, recorded to a capture
file for replay, and streamed to other tools over a WebSocket feed.

Logging is silent unless --log-level or TRAMESNIFF_LOG_LEVEL is set.`,
	Version: version.Version,
	Example: `  # List serial ports
  tramesniff ports

  # Capture from a sniffer, sniffing a 19200 8E1 line
  tramesniff listen --port /dev/ttyUSB0 --baud 19200 --parity even

  # Try the UI without hardware
  tramesniff simulate

  # Highlight a byte sequence and stream frames to the network
  tramesniff listen --port /dev/ttyUSB0 --highlight "4C 4C=red" --feed`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The live view owns stdout, so logs never go there.
		if logFile != "" {
			return logging.InitializeFile(logLevel, logFile)
		}
		return logging.InitializeTo(logLevel, []string{"stderr"})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file (default: tramesniff.db in the config directory)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tramesniff %s (commit: %s)\n", version.Version, version.Commit)
	},
}
