package main

import (
	"errors"

	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

func (s *CommandTestSuite) TestReadAutoResolvesService() {
	out, err := s.ExecuteCommand("read", testAddress, "2a29")
	s.Require().NoError(err)
	s.AssertText(out, "Acme")
}

func (s *CommandTestSuite) TestReadExplicitServiceHex() {
	out, err := s.ExecuteCommand("read", testAddress, "180a", "00002a29-0000-1000-8000-00805f9b34fb", "--hex")
	s.Require().NoError(err)
	s.AssertText(out, "41 63 6D 65")
}

func (s *CommandTestSuite) TestReadBinaryValueIsHex() {
	out, err := s.ExecuteCommand("read", testAddress, "2a38")
	s.Require().NoError(err)
	s.AssertText(out, "01")
}

func (s *CommandTestSuite) TestReadNotReadable() {
	_, err := s.ExecuteCommand("read", testAddress, "2a37")
	s.ErrorContains(err, "characteristic 2a37 is not readable (notify)")
}

func (s *CommandTestSuite) TestReadUnknownCharacteristic() {
	_, err := s.ExecuteCommand("read", testAddress, "180d", "2a29")
	s.Require().Error(err)
	s.True(errors.Is(err, platform.ErrUnknownChar))
}

func (s *CommandTestSuite) TestReadPlatformFailure() {
	s.Serve(s.defaultPeripheral().WithFailure("ReadCharacteristic", errors.New("insufficient authentication")).Build())

	_, err := s.ExecuteCommand("read", testAddress, "2a29")
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrReadFailed))
	s.ErrorContains(err, "insufficient authentication")
}

func (s *CommandTestSuite) TestReadArgs() {
	_, err := s.ExecuteCommand("read", testAddress)
	s.Error(err)
}
