package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blim",
		Short: "Bluetooth Low Energy central CLI",
		Long: `Bluetooth Low Energy (BLE) central tool built on a single-device session:

- Scan and list nearby named BLE devices
- Inspect GATT services and characteristic capabilities
- Read, write and subscribe to characteristics
- Report adapter availability

Ideal for firmware development, automated testing, and BLE protocols exploration.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),

		// main prints clean errors
		SilenceErrors: true,
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newStateCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newReadCmd())
	root.AddCommand(newWriteCmd())
	root.AddCommand(newSubscribeCmd())

	// Global flags
	flags := root.PersistentFlags()
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("config", "", "Path to a YAML config file")
	flags.Bool("debug", false, "Trace every BLE platform request")
	flags.Duration("connect-timeout", 0, "Connect timeout (default from config, 10s)")

	// Add -v as a short flag for --version
	root.Flags().BoolP("version", "v", false, "Show version information")
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
