package main

import (
	"errors"

	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

func (s *CommandTestSuite) TestState() {
	out, err := s.ExecuteCommand("state")
	s.Require().NoError(err)

	s.AssertText(out, `
Platform:    fake
Available:   yes
Discovering: no
`)
	s.Equal(1, s.Platform.CloseAdapterCalls())
}

func (s *CommandTestSuite) TestStateWatchReleasesListener() {
	_, err := s.ExecuteCommand("state", "--watch", "--duration", "50ms")
	s.Require().NoError(err)
	s.Equal(0, s.Platform.AdapterStateListeners())
}

func (s *CommandTestSuite) TestStateAdapterFailure() {
	s.Serve(s.defaultPeripheral().WithFailure("OpenAdapter", platform.ErrUnsupported).Build())

	_, err := s.ExecuteCommand("state")
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrAdapterUnavailable))
	s.Contains(FormatUserError(err), "BLE is not available on this system")
	s.Equal(0, s.Platform.CloseAdapterCalls())
}
