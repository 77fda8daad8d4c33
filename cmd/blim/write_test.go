package main

import (
	"errors"
	"time"

	"github.com/srg/blesession/pkg/session"
)

func (s *CommandTestSuite) TestWriteHex() {
	out, err := s.ExecuteCommand("write", testAddress, "2a39", "01 02")
	s.Require().NoError(err)

	s.AssertText(out, "Wrote 2 bytes to 2a39")
	s.Equal([][]byte{{0x01, 0x02}}, s.Peripheral.Writes("2a39"))
}

func (s *CommandTestSuite) TestWriteTextWithService() {
	out, err := s.ExecuteCommand("write", testAddress, "180d", "2a39", "hi", "--text")
	s.Require().NoError(err)

	s.AssertText(out, "Wrote 2 bytes to 2a39")
	s.Equal([][]byte{[]byte("hi")}, s.Peripheral.Writes("2a39"))
}

func (s *CommandTestSuite) TestWriteNoWait() {
	out, err := s.ExecuteCommand("write", testAddress, "2a39", "0xff", "--no-wait")
	s.Require().NoError(err)

	s.AssertText(out, "Sent 1 bytes to 2a39")
	s.Eventually(func() bool {
		return len(s.Peripheral.Writes("2a39")) == 1
	}, time.Second, 10*time.Millisecond)
}

func (s *CommandTestSuite) TestWriteNotWritable() {
	_, err := s.ExecuteCommand("write", testAddress, "2a38", "01")
	s.ErrorContains(err, "characteristic 2a38 is not writable (read)")
	s.Empty(s.Peripheral.Writes("2a38"))
}

func (s *CommandTestSuite) TestWriteInvalidPayloadSkipsConnect() {
	_, err := s.ExecuteCommand("write", testAddress, "2a39", "zz")
	s.ErrorContains(err, `invalid hex payload "zz"`)
	s.Empty(s.Platform.Disconnects())
}

func (s *CommandTestSuite) TestWritePlatformFailure() {
	s.Serve(s.defaultPeripheral().WithFailure("WriteCharacteristic", errors.New("write not permitted")).Build())

	_, err := s.ExecuteCommand("write", testAddress, "2a39", "01")
	s.Require().Error(err)
	s.True(errors.Is(err, session.ErrWriteFailed))
}
