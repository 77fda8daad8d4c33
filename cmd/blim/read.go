package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blesession/pkg/platform"
)

func newReadCmd() *cobra.Command {
	var (
		asHex   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "read <device-address> [service-uuid] <char-uuid>",
		Short: "Read a characteristic value",
		Long: `Connect to a BLE device and read one characteristic.

When the service UUID is omitted the characteristic is looked up across all
services; it must be unique on the device. Printable values are shown as text,
anything else as hex bytes.`,
		Example: `  blim read AA:BB:CC:DD:EE:FF 2a19
  blim read AA:BB:CC:DD:EE:FF 180f 2a19 --hex`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if !char.Properties.Readable() {
				return fmt.Errorf("characteristic %s is not readable (%s)", char.UUID, char.Properties)
			}

			values := make(chan []byte, 1)
			err = a.session.Read(ctx, char.ServiceUUID, char.UUID, func(vc platform.ValueChange) {
				select {
				case values <- vc.Value:
				default:
				}
			})
			if err != nil {
				return err
			}

			waitCtx, stop := context.WithTimeout(ctx, timeout)
			defer stop()
			select {
			case v := <-values:
				a.logger.WithFields(logrus.Fields{
					"char": char.UUID,
					"len":  len(v),
				}).Debug("Value received")
				fmt.Fprintln(a.out, formatValue(v, asHex))
				return nil
			case <-waitCtx.Done():
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("no value received from %s within %s", char.UUID, timeout)
			}
		},
	}

	cmd.Flags().BoolVar(&asHex, "hex", false, "Always print the value as hex bytes")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the value after the read is accepted")
	return cmd
}
