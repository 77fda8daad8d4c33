package session

import (
	"context"
	"errors"

	"github.com/srg/blesession/pkg/platform"
)

func (s *SessionSuite) TestOpenAdapter() {
	var info platform.AdapterInfo
	done := s.async(func() (err error) {
		info, err = s.Session.OpenAdapter(context.Background())
		return err
	})

	s.Platform.Expect(s.T(), "OpenAdapter").CompleteAdapterInfo(platform.AdapterInfo{Platform: "linux", Address: "00:11:22:33:44:55"}, nil)

	s.Require().NoError(s.await(done))
	s.Equal("linux", info.Platform)
	s.True(s.hasEntry("openAdapter"))
}

func (s *SessionSuite) TestOpenAdapterFailure() {
	done := s.async(func() error {
		_, err := s.Session.OpenAdapter(context.Background())
		return err
	})

	s.Platform.Expect(s.T(), "OpenAdapter").CompleteAdapterInfo(platform.AdapterInfo{}, platform.ErrBluetoothOff)

	err := s.await(done)
	s.ErrorIs(err, ErrAdapterUnavailable)
	s.ErrorIs(err, platform.ErrBluetoothOff)
}

func (s *SessionSuite) TestOpenAdapterCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	done := s.async(func() error {
		_, err := s.Session.OpenAdapter(ctx)
		return err
	})

	req := s.Platform.Expect(s.T(), "OpenAdapter")
	cancel()

	err := s.await(done)
	s.ErrorIs(err, ErrAdapterUnavailable)
	s.ErrorIs(err, context.Canceled)

	// late reply is ignored
	req.CompleteAdapterInfo(platform.AdapterInfo{}, nil)
}

func (s *SessionSuite) TestCloseAdapter() {
	s.Session.CloseAdapter()
	s.Equal(1, s.Platform.CloseAdapterCalls())
}

func (s *SessionSuite) TestQueryAdapterStateStartsDiscoveryWhenIdle() {
	s.reopen(&Options{ScanServices: []string{"fee7"}})

	var updates []DiscoveryUpdate
	done := s.async(func() error {
		st, err := s.Session.QueryAdapterState(context.Background(), func(u DiscoveryUpdate) { updates = append(updates, u) })
		s.True(st.Available)
		return err
	})

	s.Platform.Expect(s.T(), "GetAdapterState").CompleteAdapterState(platform.AdapterState{Available: true}, nil)
	s.Require().NoError(s.await(done))

	req := s.Platform.Expect(s.T(), "StartDiscovery")
	s.Equal([]string{"fee7"}, req.Discovery.Services)
	s.True(req.Discovery.AllowDuplicates)
	s.Equal(1, s.Platform.DeviceFoundListeners())
}

func (s *SessionSuite) TestQueryAdapterStateWithoutHandlerOnlyReports() {
	for _, st := range []platform.AdapterState{{Available: true}, {Available: true, Discovering: true}} {
		done := s.async(func() error {
			got, err := s.Session.QueryAdapterState(context.Background(), nil)
			s.Equal(st, got)
			return err
		})
		s.Platform.Expect(s.T(), "GetAdapterState").CompleteAdapterState(st, nil)
		s.Require().NoError(s.await(done))
	}

	s.Platform.ExpectNone(s.T(), "StartDiscovery")
	s.Equal(0, s.Platform.DeviceFoundListeners())
}

func (s *SessionSuite) TestQueryAdapterStateWatchesWhenDiscovering() {
	var updates []DiscoveryUpdate
	done := s.async(func() error {
		_, err := s.Session.QueryAdapterState(context.Background(), func(u DiscoveryUpdate) { updates = append(updates, u) })
		return err
	})

	s.Platform.Expect(s.T(), "GetAdapterState").CompleteAdapterState(platform.AdapterState{Available: true, Discovering: true}, nil)
	s.Require().NoError(s.await(done))

	s.Platform.ExpectNone(s.T(), "StartDiscovery")
	s.Equal(1, s.Platform.DeviceFoundListeners())

	s.Platform.EmitDevices(platform.Device{ID: "1", Name: "X"})
	s.Require().Len(updates, 1)
	s.True(updates[0].Success)
}

func (s *SessionSuite) TestQueryAdapterStateUnavailable() {
	done := s.async(func() error {
		_, err := s.Session.QueryAdapterState(context.Background(), func(DiscoveryUpdate) {})
		return err
	})

	s.Platform.Expect(s.T(), "GetAdapterState").CompleteAdapterState(platform.AdapterState{}, nil)
	s.Require().NoError(s.await(done))

	s.Platform.ExpectNone(s.T(), "StartDiscovery")
	s.Equal(0, s.Platform.DeviceFoundListeners())
}

func (s *SessionSuite) TestQueryAdapterStateFailure() {
	boom := errors.New("boom")
	done := s.async(func() error {
		_, err := s.Session.QueryAdapterState(context.Background(), nil)
		return err
	})

	s.Platform.Expect(s.T(), "GetAdapterState").CompleteAdapterState(platform.AdapterState{}, boom)

	err := s.await(done)
	s.ErrorIs(err, ErrAdapterUnavailable)
	s.ErrorIs(err, boom)
}

func (s *SessionSuite) TestOnAdapterStateChange() {
	var got []platform.AdapterState
	sub := s.Session.OnAdapterStateChange(func(st platform.AdapterState) { got = append(got, st) })
	s.Equal(1, s.Platform.AdapterStateListeners())

	s.Platform.EmitAdapterState(platform.AdapterState{Available: true})
	sub.Cancel()
	sub.Cancel()
	s.Platform.EmitAdapterState(platform.AdapterState{Available: false})

	s.Equal([]platform.AdapterState{{Available: true}}, got)
	s.Equal(0, s.Platform.AdapterStateListeners())
}

func (s *SessionSuite) TestOnAdapterStateChangeReleasedOnClose() {
	s.Session.OnAdapterStateChange(func(platform.AdapterState) {})
	s.Session.OnAdapterStateChange(func(platform.AdapterState) {})
	s.Equal(2, s.Platform.AdapterStateListeners())

	s.Session.Close()
	s.Equal(0, s.Platform.AdapterStateListeners())

	// registering after Close is a no-op
	s.Session.OnAdapterStateChange(func(platform.AdapterState) {})
	s.Equal(0, s.Platform.AdapterStateListeners())
}
