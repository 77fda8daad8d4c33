package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// commandContext returns a context cancelled on Ctrl+C/SIGTERM and, when d > 0,
// after d.
func commandContext(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

// splitTarget splits "<device> [service] <char> [rest...]" positional arguments.
// fixed is the number of trailing arguments after the characteristic.
func splitTarget(args []string, fixed int) (deviceID, serviceUUID, charUUID string, rest []string) {
	deviceID = args[0]
	target := args[1 : len(args)-fixed]
	rest = args[len(args)-fixed:]
	if len(target) == 2 {
		return deviceID, target[0], target[1], rest
	}
	return deviceID, "", target[0], rest
}
