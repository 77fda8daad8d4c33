package main

import (
	"errors"
	"fmt"

	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

// FormatUserError turns an error into a message for the terminal.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var serr *session.Error
	errors.As(err, &serr)
	device := ""
	if serr != nil {
		device = serr.DeviceID
	}

	switch {
	case errors.Is(err, platform.ErrBluetoothOff):
		return "Bluetooth is turned off. Turn it on and try again."
	case errors.Is(err, platform.ErrUnsupported):
		return fmt.Sprintf("BLE is not available on this system: %v", err)
	case errors.Is(err, session.ErrConnectTimeout):
		return fmt.Sprintf("device %s did not respond in time; make sure it is powered on and in range", device)
	case errors.Is(err, session.ErrConnectInProgress):
		return "another connection attempt is still running"
	case errors.Is(err, session.ErrConnectFailed):
		return fmt.Sprintf("failed to connect to %s: %v", device, errors.Unwrap(err))
	case errors.Is(err, session.ErrNotReady):
		return "device is not connected"
	case errors.Is(err, platform.ErrUnknownChar), errors.Is(err, platform.ErrUnknownService):
		return fmt.Sprintf("%v (use 'blim inspect %s' to list the device profile)", err, device)
	default:
		return err.Error()
	}
}
