package main

import (
	"errors"

	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

func (s *CommandTestSuite) TestInspectText() {
	out, err := s.ExecuteCommand("inspect", testAddress)
	s.Require().NoError(err)

	s.AssertText(out, `
Device AA:BB:CC:DD:EE:FF
  Service 180d Heart Rate (primary)
    2a37 Heart Rate Measurement  notify
    2a38 Body Sensor Location  read
    2a39 Heart Rate Control Point  write
  Service 180a Device Information (primary)
    2a29 Manufacturer Name String  read
`)
	s.Equal([]string{testAddress}, s.Platform.Disconnects())
}

func (s *CommandTestSuite) TestInspectJSON() {
	out, err := s.ExecuteCommand("inspect", testAddress, "--format", "json")
	s.Require().NoError(err)

	s.AssertJSON(out, `{
		"device": "AA:BB:CC:DD:EE:FF",
		"services": [
			{"uuid": "180d", "name": "Heart Rate", "primary": true, "characteristics": [
				{"uuid": "2a37", "name": "Heart Rate Measurement", "properties": "notify"},
				{"uuid": "2a38", "name": "Body Sensor Location", "properties": "read"},
				{"uuid": "2a39", "name": "Heart Rate Control Point", "properties": "write"}
			]},
			{"uuid": "180a", "name": "Device Information", "primary": true, "characteristics": [
				{"uuid": "2a29", "name": "Manufacturer Name String", "properties": "read"}
			]}
		]
	}`)
}

func (s *CommandTestSuite) TestInspectVendorService() {
	s.Serve(s.defaultPeripheral().FromJSON(`{
		"name": "Custom",
		"services": [
			{"uuid": "fff0", "characteristics": [{"uuid": "fff1", "properties": "read,write-without-response"}]}
		]
	}`).Build())

	out, err := s.ExecuteCommand("inspect", testAddress)
	s.Require().NoError(err)
	s.AssertText(out, `
Device AA:BB:CC:DD:EE:FF
  Service fff0 (primary)
    fff1  read,write-without-response
`)
}

func (s *CommandTestSuite) TestInspectNoServices() {
	s.Serve(s.defaultPeripheral().FromJSON(`{"name": "Empty"}`).Build())

	out, err := s.ExecuteCommand("inspect", testAddress)
	s.Require().NoError(err)
	s.AssertText(out, `
Device AA:BB:CC:DD:EE:FF
  (no services)
`)
}

func (s *CommandTestSuite) TestInspectConnectFailure() {
	_, err := s.ExecuteCommand("inspect", "00:00:00:00:00:01")
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrConnectFailed))
	s.True(errors.Is(err, platform.ErrNotConnected))
	s.Equal(`failed to connect to 00:00:00:00:00:01: device not connected`, FormatUserError(err))
	// only the release on exit, no link teardown
	s.Equal([]string{"00:00:00:00:00:01"}, s.Platform.Disconnects())
}

func (s *CommandTestSuite) TestInspectEnumerationFailure() {
	s.Serve(s.defaultPeripheral().WithFailure("DiscoverCharacteristics", errors.New("gatt error")).Build())

	_, err := s.ExecuteCommand("inspect", testAddress)
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrCharacteristicDiscoveryFailed))
	// teardown of the half-open link, then the release on exit
	s.Equal([]string{testAddress, testAddress}, s.Platform.Disconnects())
}

func (s *CommandTestSuite) TestInspectConnectTimeoutFlag() {
	_, err := s.ExecuteCommand("inspect", testAddress, "--connect-timeout", "0s")
	s.ErrorContains(err, "invalid connect timeout")
}
