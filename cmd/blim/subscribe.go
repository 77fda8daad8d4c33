package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blesession/pkg/platform"
)

const unsubscribeTimeout = 2 * time.Second

type subscribeOptions struct {
	duration   time.Duration
	count      int
	asHex      bool
	timestamps bool
}

func newSubscribeCmd() *cobra.Command {
	opts := &subscribeOptions{}
	cmd := &cobra.Command{
		Use:   "subscribe <device-address> [service-uuid] <char-uuid>",
		Short: "Stream characteristic notifications",
		Long: `Connect to a BLE device, enable notifications (or indications) on one
characteristic and print every value pushed by the device.

Streaming stops on Ctrl+C, after --duration, or after --count values.`,
		Example: `  blim subscribe AA:BB:CC:DD:EE:FF 2a37
  blim subscribe AA:BB:CC:DD:EE:FF 180d 2a37 --count 10 --timestamps`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubscribe(cmd, args, opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Stream duration, 0 streams until Ctrl+C")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Stop after this many values (0 for unlimited)")
	cmd.Flags().BoolVar(&opts.asHex, "hex", false, "Always print values as hex bytes")
	cmd.Flags().BoolVarP(&opts.timestamps, "timestamps", "t", false, "Prefix each value with the receive time")
	return cmd
}

func runSubscribe(cmd *cobra.Command, args []string, opts *subscribeOptions) error {
	if opts.count < 0 {
		return fmt.Errorf("invalid count %d: must be zero or positive", opts.count)
	}
	deviceID, serviceUUID, charUUID, _ := splitTarget(args, 0)

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()
	if err := a.connect(ctx, deviceID); err != nil {
		return err
	}

	char, err := resolveTarget(a.session, serviceUUID, charUUID)
	if err != nil {
		return err
	}
	if !char.Properties.Subscribable() {
		return fmt.Errorf("characteristic %s does not support notifications (%s)", char.UUID, char.Properties)
	}

	values := make(chan platform.ValueChange, 64)
	err = a.session.Subscribe(ctx, char.ServiceUUID, char.UUID, func(vc platform.ValueChange) {
		select {
		case values <- vc:
		default:
			a.logger.WithField("char", vc.CharacteristicID).Warn("Dropping notification, output is too slow")
		}
	})
	if err != nil {
		return err
	}
	defer func() {
		unsubCtx, stop := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer stop()
		if err := a.session.Unsubscribe(unsubCtx, char.ServiceUUID, char.UUID); err != nil {
			a.logger.WithError(err).Warn("Failed to disable notifications")
		}
	}()

	streamCtx, stopStream := commandContext(cmd, opts.duration)
	defer stopStream()

	received := 0
	for {
		select {
		case vc := <-values:
			if opts.timestamps {
				fmt.Fprint(a.out, a.colors.dim.Sprint(time.Now().Format("15:04:05.000")), "  ")
			}
			fmt.Fprintln(a.out, formatValue(vc.Value, opts.asHex))

			received++
			if opts.count > 0 && received >= opts.count {
				return nil
			}
		case <-streamCtx.Done():
			if errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return streamCtx.Err()
		}
	}
}
