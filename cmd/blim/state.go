package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blesession/pkg/platform"
)

func newStateCmd() *cobra.Command {
	var (
		watch    bool
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show BLE adapter state",
		Long: `Open the BLE adapter and report whether it is available and discovering.

With --watch, adapter transitions (power on/off) are printed until Ctrl+C or --duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := commandContext(cmd, 0)
			defer cancel()

			info, err := a.open(ctx)
			if err != nil {
				return err
			}
			st, err := a.session.QueryAdapterState(ctx, nil)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Platform:    %s\n", info.Platform)
			if info.Address != "" {
				fmt.Fprintf(a.out, "Address:     %s\n", info.Address)
			}
			printAdapterState(a, st)

			if !watch {
				return nil
			}

			sub := a.session.OnAdapterStateChange(func(st platform.AdapterState) {
				fmt.Fprintf(a.out, "%s  ", time.Now().Format("15:04:05.000"))
				printAdapterState(a, st)
			})
			defer sub.Cancel()

			watchCtx, stop := commandContext(cmd, duration)
			defer stop()
			<-watchCtx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Print adapter state transitions")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "How long to watch, 0 watches until Ctrl+C")
	return cmd
}

func printAdapterState(a *app, st platform.AdapterState) {
	yesNo := func(b bool) string {
		if b {
			return a.colors.value.Sprint("yes")
		}
		return a.colors.dim.Sprint("no")
	}
	fmt.Fprintf(a.out, "Available:   %s\n", yesNo(st.Available))
	fmt.Fprintf(a.out, "Discovering: %s\n", yesNo(st.Discovering))
}
