package session

import (
	"errors"

	"github.com/srg/blesession/internal/testutils"
	"github.com/srg/blesession/pkg/platform"
)

func (s *SessionSuite) TestStartDiscoveryDeduplicatesAndFilters() {
	var updates []DiscoveryUpdate
	s.Session.StartDiscovery([]string{"0xFEE7"}, func(u DiscoveryUpdate) { updates = append(updates, u) })

	req := s.Platform.Expect(s.T(), "StartDiscovery")
	s.Equal([]string{"0xFEE7"}, req.Discovery.Services)
	req.Complete(nil)

	s.Platform.EmitDevices(platform.Device{ID: "1", Name: "X"})
	s.Platform.EmitDevices(platform.Device{ID: "2", Name: ""})
	s.Platform.EmitDevices(platform.Device{ID: "1", Name: "X2"})

	s.Require().Len(updates, 2)
	s.True(updates[1].Success)
	s.Equal([]platform.Device{{ID: "1", Name: "X2"}}, updates[1].Devices)
	s.Equal(updates[1].Devices, s.Session.Devices())
}

func (s *SessionSuite) TestStartDiscoveryListensBeforeScanStarts() {
	listenersAtStart := -1
	s.Platform.SetResponder(func(r *testutils.Request) bool {
		if r.Method != "StartDiscovery" {
			return false
		}
		listenersAtStart = s.Platform.DeviceFoundListeners()
		// a device found before the start callback must not be lost
		s.Platform.EmitDevices(platform.Device{ID: "1", Name: "Early"})
		r.Complete(nil)
		return true
	})

	var updates []DiscoveryUpdate
	s.Session.StartDiscovery(nil, func(u DiscoveryUpdate) { updates = append(updates, u) })

	s.Equal(1, listenersAtStart)
	s.Require().Len(updates, 1)
	s.True(updates[0].Success)
	s.Equal([]platform.Device{{ID: "1", Name: "Early"}}, updates[0].Devices)
}

func (s *SessionSuite) TestStartDiscoveryPreservesFirstSeenOrder() {
	var last DiscoveryUpdate
	s.Session.StartDiscovery(nil, func(u DiscoveryUpdate) { last = u })

	s.Platform.EmitDevices(
		platform.Device{ID: "a", Name: "A"},
		platform.Device{ID: "b", LocalName: "B"},
	)
	s.Platform.EmitDevices(platform.Device{ID: "c", Name: "C"})
	s.Platform.EmitDevices(platform.Device{ID: "a", Name: "A2", RSSI: -40})

	ids := make([]string, 0, len(last.Devices))
	for _, d := range last.Devices {
		ids = append(ids, d.ID)
	}
	s.Equal([]string{"a", "b", "c"}, ids)
	s.Equal("A2", last.Devices[0].Name)
	s.Equal(-40, last.Devices[0].RSSI)
}

func (s *SessionSuite) TestStartDiscoveryFailure() {
	var updates []DiscoveryUpdate
	s.Session.StartDiscovery([]string{"fee7"}, func(u DiscoveryUpdate) { updates = append(updates, u) })

	s.Platform.Expect(s.T(), "StartDiscovery").Complete(errors.New("scan refused"))

	s.Require().Len(updates, 1)
	s.False(updates[0].Success)
	s.ErrorIs(updates[0].Err, ErrDiscoveryStartFailed)

	// the listener stays registered
	s.Equal(1, s.Platform.DeviceFoundListeners())
	s.Platform.EmitDevices(platform.Device{ID: "1", Name: "X"})
	s.Len(updates, 2)
}

func (s *SessionSuite) TestStartDiscoveryReplacesListener() {
	var first, second int
	s.Session.StartDiscovery(nil, func(DiscoveryUpdate) { first++ })
	s.Platform.EmitDevices(platform.Device{ID: "1", Name: "X"})

	s.Session.StartDiscovery(nil, func(DiscoveryUpdate) { second++ })
	s.Equal(1, s.Platform.DeviceFoundListeners())

	s.Platform.EmitDevices(platform.Device{ID: "2", Name: "Y"})
	s.Equal(1, first)
	s.Equal(1, second)
	s.Len(s.Session.Devices(), 1, "each discovery starts a fresh list")
}

func (s *SessionSuite) TestStopDiscovery() {
	s.Session.StartDiscovery(nil, func(DiscoveryUpdate) {})
	s.Platform.EmitDevices(platform.Device{ID: "1", Name: "X"})

	s.Session.StopDiscovery()

	s.Equal(1, s.Platform.StopDiscoveryCalls())
	s.Len(s.Session.Devices(), 1)
}

func (s *SessionSuite) TestDevicesBeforeDiscovery() {
	s.Nil(s.Session.Devices())
}
