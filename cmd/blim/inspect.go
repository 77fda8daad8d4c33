package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/blesession/internal/bledb"
)

type inspectCharacteristic struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name,omitempty"`
	Properties string `json:"properties"`
}

type inspectService struct {
	UUID            string                  `json:"uuid"`
	Name            string                  `json:"name,omitempty"`
	Primary         bool                    `json:"primary"`
	Characteristics []inspectCharacteristic `json:"characteristics"`
}

type inspectReport struct {
	Device   string           `json:"device"`
	Services []inspectService `json:"services"`
}

func newInspectCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <device-address>",
		Short: "Connect to a device and list its GATT profile",
		Long: `Connect to a BLE device, enumerate every service and characteristic,
and print the capability flags of each characteristic.`,
		Example: `  blim inspect AA:BB:CC:DD:EE:FF
  blim inspect AA:BB:CC:DD:EE:FF --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format '%s': must be one of [text json]", format)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(cmd, 0)
			defer cancel()
			if err := a.connect(ctx, args[0]); err != nil {
				return err
			}

			report := buildInspectReport(a, args[0])
			if format == "json" {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeInspectText(a, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func buildInspectReport(a *app, deviceID string) inspectReport {
	report := inspectReport{Device: deviceID, Services: []inspectService{}}
	for _, svc := range a.session.Services() {
		entry := inspectService{
			UUID:            svc.UUID,
			Name:            bledb.LookupService(svc.UUID),
			Primary:         svc.IsPrimary,
			Characteristics: []inspectCharacteristic{},
		}
		for _, c := range a.session.Characteristics(svc.UUID) {
			entry.Characteristics = append(entry.Characteristics, inspectCharacteristic{
				UUID:       c.UUID,
				Name:       bledb.LookupCharacteristic(c.UUID),
				Properties: c.Properties.String(),
			})
		}
		report.Services = append(report.Services, entry)
	}
	return report
}

func writeInspectText(a *app, report inspectReport) {
	fmt.Fprintf(a.out, "%s %s\n", a.colors.header.Sprint("Device"), report.Device)
	if len(report.Services) == 0 {
		fmt.Fprintln(a.out, "  (no services)")
		return
	}
	for _, svc := range report.Services {
		kind := "secondary"
		if svc.Primary {
			kind = "primary"
		}
		fmt.Fprintf(a.out, "  %s %s%s %s\n", a.colors.header.Sprint("Service"), a.colors.name.Sprint(svc.UUID),
			withName(svc.Name), a.colors.dim.Sprintf("(%s)", kind))
		for _, c := range svc.Characteristics {
			fmt.Fprintf(a.out, "    %s%s  %s\n", c.UUID, withName(c.Name), c.Properties)
		}
	}
}

func withName(name string) string {
	if name == "" {
		return ""
	}
	return " " + name
}
