package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

const clearScreenSequence = "\033[H\033[2J"

type scanOptions struct {
	duration  time.Duration
	format    string
	services  string
	allowList []string
	blockList []string
	watch     bool
}

// scanEntry is the JSON form of a discovered device.
type scanEntry struct {
	Address  string   `json:"address"`
	Name     string   `json:"name"`
	RSSI     int      `json:"rssi"`
	Services []string `json:"services,omitempty"`
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for BLE devices",
		Long: `Scan for and display named Bluetooth Low Energy devices in the vicinity.

Devices are listed in the order they were first seen; repeated advertisements
refresh RSSI and name in place.`,
		Example: `  blim scan
  blim scan --duration 30s --services 180d
  blim scan --format json
  blim scan --watch --duration 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Scan duration, 0 scans until Ctrl+C (default from config, 10s)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().StringVarP(&opts.services, "services", "s", "", "Comma separated service UUIDs to filter by")
	cmd.Flags().StringSliceVar(&opts.allowList, "allow", nil, "Only show devices with these addresses")
	cmd.Flags().StringSliceVar(&opts.blockList, "block", nil, "Hide devices with these addresses")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Redraw the device table on every update")
	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", opts.format)
	}
	services, err := parseCSVUUIDs(opts.services)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !cmd.Flags().Changed("duration") {
		opts.duration = a.cfg.ScanDuration
	}
	if services == nil {
		services = a.cfg.ScanServices
	}

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()
	if _, err := a.open(ctx); err != nil {
		return err
	}

	var (
		scanCtx  context.Context
		stopScan context.CancelFunc
	)
	if opts.duration > 0 {
		scanCtx, stopScan = context.WithTimeout(ctx, opts.duration)
	} else {
		scanCtx, stopScan = context.WithCancel(ctx)
	}
	defer stopScan()

	var (
		mu      sync.Mutex
		devices []platform.Device
		failure error
	)
	filter := newAddressFilter(opts.allowList, opts.blockList)

	a.logger.WithFields(logrus.Fields{
		"services": services,
		"duration": opts.duration,
	}).Info("Scanning for BLE devices")

	progress := NewCountdownProgressPrinter(a.errOut, "Scanning", "Scanning", opts.duration)
	if !opts.watch && opts.duration > 0 {
		progress.Start()
	}

	a.session.StartDiscovery(services, func(u session.DiscoveryUpdate) {
		mu.Lock()
		defer mu.Unlock()

		if !u.Success {
			failure = u.Err
			stopScan()
			return
		}
		devices = filter.apply(u.Devices)
		if opts.watch {
			if isTerminal(a.out) {
				fmt.Fprint(a.out, clearScreenSequence)
			}
			_ = writeScanTable(a.out, a.colors, devices)
		}
	})

	<-scanCtx.Done()
	progress.Stop()
	a.session.StopDiscovery()

	mu.Lock()
	defer mu.Unlock()
	if failure != nil {
		return failure
	}

	a.logger.WithField("count", len(devices)).Info("Scan finished")

	if opts.format == "json" {
		return writeScanJSON(a.out, devices)
	}
	if opts.watch {
		return nil
	}
	return writeScanTable(a.out, a.colors, devices)
}

// addressFilter applies --allow and --block.
type addressFilter struct {
	allow map[string]struct{}
	block map[string]struct{}
}

func newAddressFilter(allow, block []string) *addressFilter {
	set := func(in []string) map[string]struct{} {
		if len(in) == 0 {
			return nil
		}
		m := make(map[string]struct{}, len(in))
		for _, a := range in {
			m[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
		}
		return m
	}
	return &addressFilter{allow: set(allow), block: set(block)}
}

func (f *addressFilter) apply(devices []platform.Device) []platform.Device {
	out := make([]platform.Device, 0, len(devices))
	for _, d := range devices {
		id := strings.ToLower(d.ID)
		if f.allow != nil {
			if _, ok := f.allow[id]; !ok {
				continue
			}
		}
		if _, blocked := f.block[id]; blocked {
			continue
		}
		out = append(out, d)
	}
	return out
}

func writeScanTable(w io.Writer, colors *palette, devices []platform.Device) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, colors.header.Sprint("NAME\tADDRESS\tRSSI\tSERVICES"))
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			colors.name.Sprint(d.DisplayName()), d.ID, d.RSSI, strings.Join(d.AdvertisServiceUUIDs, ","))
	}
	return tw.Flush()
}

func writeScanJSON(w io.Writer, devices []platform.Device) error {
	entries := make([]scanEntry, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, scanEntry{
			Address:  d.ID,
			Name:     d.DisplayName(),
			RSSI:     d.RSSI,
			Services: d.AdvertisServiceUUIDs,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return errors.Join(errors.New("failed to encode scan results"), err)
	}
	return nil
}
