package main

import (
	"errors"

	"github.com/srg/blesession/pkg/session"
)

func (s *CommandTestSuite) TestSubscribeCount() {
	out, err := s.ExecuteCommand("subscribe", testAddress, "2a37", "--count", "3")
	s.Require().NoError(err)

	s.AssertText(out, `
00 48
00 49
00 4A
`)
}

func (s *CommandTestSuite) TestSubscribeDurationEndsCleanly() {
	out, err := s.ExecuteCommand("subscribe", testAddress, "180d", "2a37", "--duration", "200ms")
	s.Require().NoError(err)

	s.AssertText(out, `
00 48
00 49
00 4A
`)
}

func (s *CommandTestSuite) TestSubscribeNotSubscribable() {
	_, err := s.ExecuteCommand("subscribe", testAddress, "2a29")
	s.ErrorContains(err, "characteristic 2a29 does not support notifications (read)")
}

func (s *CommandTestSuite) TestSubscribeFailure() {
	s.Serve(s.defaultPeripheral().WithFailure("SetNotifyState", errors.New("cccd write failed")).Build())

	_, err := s.ExecuteCommand("subscribe", testAddress, "2a37", "-n", "1")
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrSubscribeFailed))
}

func (s *CommandTestSuite) TestSubscribeInvalidCount() {
	_, err := s.ExecuteCommand("subscribe", testAddress, "2a37", "--count", "-1")
	s.ErrorContains(err, "invalid count -1")
}
