package main

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blesession/pkg/config"
	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/platform/goble"
	"github.com/srg/blesession/pkg/session"
)

// newPlatform builds the host BLE backend. Tests swap it for a simulator.
var newPlatform = func(logger *logrus.Logger) platform.Platform {
	return goble.New(logger, nil)
}

// app is the per-command runtime: config, logger and one session.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	session *session.Session
	out     io.Writer
	errOut  io.Writer
	colors  *palette
	opened  bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	return &app{
		cfg:     cfg,
		logger:  logger,
		session: session.New(newPlatform(logger), cfg.SessionOptions(), logger),
		out:     out,
		errOut:  cmd.ErrOrStderr(),
		colors:  newPalette(out),
	}, nil
}

// open powers the adapter on.
func (a *app) open(ctx context.Context) (platform.AdapterInfo, error) {
	info, err := a.session.OpenAdapter(ctx)
	if err != nil {
		return info, err
	}
	a.opened = true
	a.logger.WithFields(logrus.Fields{
		"platform": info.Platform,
		"address":  info.Address,
	}).Debug("BLE adapter opened")
	return info, nil
}

// connect opens the adapter and connects to deviceID, showing progress on a terminal.
func (a *app) connect(ctx context.Context, deviceID string) error {
	if _, err := a.open(ctx); err != nil {
		return err
	}

	progress := NewProgressPrinter(a.errOut, "Connecting to "+deviceID, phaseConnecting, phaseReady, phaseFailed)
	progress.Start()
	sub := a.session.OnStateChange(connectPhases(progress.Callback()))
	err := a.session.Connect(ctx, deviceID)
	sub.Cancel()
	progress.Stop()
	if err != nil {
		return err
	}

	a.logger.WithField("device_id", deviceID).Info("Connected")
	return nil
}

const (
	phaseConnecting = "Connecting"
	phaseDiscovery  = "Discovering services"
	phaseReady      = "Ready"
	phaseFailed     = "Failed"
)

// connectPhases maps session states onto progress phases.
func connectPhases(update func(phase string)) func(session.State) {
	return func(st session.State) {
		switch st {
		case session.StateConnecting:
			update(phaseConnecting)
		case session.StateServiceDiscovery:
			update(phaseDiscovery)
		case session.StateReady:
			update(phaseReady)
		case session.StateFailed:
			update(phaseFailed)
		}
	}
}

// Close disconnects and releases the session and adapter.
func (a *app) Close() {
	a.session.Close()
	if a.opened {
		a.session.CloseAdapter()
	}
}
