package main

import (
	"errors"

	"github.com/srg/blesession/internal/testutils"
	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

func (s *CommandTestSuite) TestScanTable() {
	out, err := s.ExecuteCommand("scan", "--duration", "200ms")
	s.Require().NoError(err)

	s.AssertText(out, `
NAME         ADDRESS            RSSI  SERVICES
HeartSensor  AA:BB:CC:DD:EE:FF  -50   180d,180a
Thermo       11:22:33:44:55:66  -70
`)
	s.NotZero(s.Platform.StopDiscoveryCalls())
}

func (s *CommandTestSuite) TestScanJSON() {
	out, err := s.ExecuteCommand("scan", "--duration", "200ms", "--format", "json")
	s.Require().NoError(err)

	s.AssertJSON(out, `[
		{"address": "AA:BB:CC:DD:EE:FF", "name": "HeartSensor", "rssi": -50, "services": ["180d", "180a"]},
		{"address": "11:22:33:44:55:66", "name": "Thermo", "rssi": -70}
	]`)
}

func (s *CommandTestSuite) TestScanBlockList() {
	out, err := s.ExecuteCommand("scan", "-d", "200ms", "--block", "11:22:33:44:55:66")
	s.Require().NoError(err)

	s.AssertText(out, `
NAME         ADDRESS            RSSI  SERVICES
HeartSensor  AA:BB:CC:DD:EE:FF  -50   180d,180a
`)
}

func (s *CommandTestSuite) TestScanAllowListNoMatch() {
	out, err := s.ExecuteCommand("scan", "-d", "200ms", "--allow", "00:00:00:00:00:01")
	s.Require().NoError(err)
	s.AssertText(out, "No devices found")
}

func (s *CommandTestSuite) TestScanPassesServiceFilter() {
	s.Platform.SetResponder(func(r *testutils.Request) bool {
		switch r.Method {
		case "OpenAdapter":
			r.CompleteAdapterInfo(platform.AdapterInfo{Platform: "fake"}, nil)
			return true
		case "StartDiscovery":
			s.Equal([]string{"180d"}, r.Discovery.Services)
			r.Complete(nil)
			return true
		}
		return false
	})

	_, err := s.ExecuteCommand("scan", "-d", "50ms", "--services", "0x180D")
	s.Require().NoError(err)
}

func (s *CommandTestSuite) TestScanStartFailure() {
	s.Serve(s.defaultPeripheral().WithFailure("StartDiscovery", platform.ErrBluetoothOff).Build())

	_, err := s.ExecuteCommand("scan", "-d", "5s")
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrDiscoveryStartFailed))
	s.True(errors.Is(err, platform.ErrBluetoothOff))
	s.Equal("Bluetooth is turned off. Turn it on and try again.", FormatUserError(err))
}

func (s *CommandTestSuite) TestScanInvalidArguments() {
	_, err := s.ExecuteCommand("scan", "--format", "xml")
	s.ErrorContains(err, "invalid format 'xml'")

	_, err = s.ExecuteCommand("scan", "--services", "zz")
	s.ErrorContains(err, "invalid UUID")
}
