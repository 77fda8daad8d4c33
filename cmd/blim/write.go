package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWriteCmd() *cobra.Command {
	var (
		noWait bool
		asText bool
	)
	cmd := &cobra.Command{
		Use:   "write <device-address> [service-uuid] <char-uuid> <payload>",
		Short: "Write a value to a characteristic",
		Long: `Connect to a BLE device and write a payload to one characteristic.

The payload is hex ("01ff", "01 ff", "0x01ff") unless --text is given.
By default the write waits for the device to acknowledge it; --no-wait fires
the write and returns immediately.`,
		Example: `  blim write AA:BB:CC:DD:EE:FF 2a06 01
  blim write AA:BB:CC:DD:EE:FF 180d 2a39 "01 02" --no-wait
  blim write AA:BB:CC:DD:EE:FF 6e400002-b5a3-f393-e0a9-e50e24dcca9e "hello" --text`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, serviceUUID, charUUID, rest := splitTarget(args, 1)

			payload := []byte(rest[0])
			if !asText {
				var err error
				if payload, err = parseHex(rest[0]); err != nil {
					return err
				}
			}

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
			if !char.Properties.Writable() {
				return fmt.Errorf("characteristic %s is not writable (%s)", char.UUID, char.Properties)
			}

			if noWait {
				a.session.WriteBestEffort(char.ServiceUUID, char.UUID, payload)
				fmt.Fprintf(a.out, "Sent %d bytes to %s\n", len(payload), char.UUID)
				return nil
			}

			if err := a.session.Write(ctx, char.ServiceUUID, char.UUID, payload); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", len(payload), char.UUID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Do not wait for the write to be acknowledged")
	cmd.Flags().BoolVar(&asText, "text", false, "Treat the payload as UTF-8 text instead of hex")
	return cmd
}
