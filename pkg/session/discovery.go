package session

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/pkg/platform"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DiscoveryUpdate is delivered on every accepted device-found event.
type DiscoveryUpdate struct {
	Success bool
	Devices []platform.Device // full accumulated list, first-seen order
	Err     error
}

// DiscoveryHandler receives discovery updates.
type DiscoveryHandler func(DiscoveryUpdate)

// deviceList is the ordered, ID-deduplicated list of named devices seen by one scan.
type deviceList struct {
	deliver sync.Mutex // serializes update delivery so lists arrive in order
	mu      sync.Mutex
	devices *orderedmap.OrderedMap[string, platform.Device]
}

func newDeviceList() *deviceList {
	return &deviceList{devices: orderedmap.New[string, platform.Device]()}
}

// upsert replaces an existing entry in place or appends a new one, and returns a
// snapshot of the list.
func (l *deviceList) upsert(d platform.Device) (snapshot []platform.Device, existed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, existed = l.devices.Set(d.ID, d)
	return l.snapshotLocked(), existed
}

func (l *deviceList) snapshot() []platform.Device {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *deviceList) snapshotLocked() []platform.Device {
	out := make([]platform.Device, 0, l.devices.Len())
	for pair := l.devices.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// StartDiscovery scans for peripherals advertising serviceIDs (all when empty).
//
// The device-found listener is registered before the scan is requested. Every named
// device found updates the accumulated list and onUpdate receives the complete list.
// If the scan cannot start, onUpdate receives a single unsuccessful update; the
// listener stays registered. Each call starts a fresh list and replaces the listener of
// the previous call.
func (s *Session) StartDiscovery(serviceIDs []string, onUpdate DiscoveryHandler) {
	s.watchDevices(onUpdate)

	opts := platform.DiscoveryOptions{
		Services:        append([]string(nil), serviceIDs...),
		AllowDuplicates: true,
	}
	s.platform.StartDiscovery(opts, func(err error) {
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"services": serviceIDs,
				"error":    err,
			}).Warn("Failed to start BLE discovery")
			onUpdate(DiscoveryUpdate{Success: false, Err: newError(KindDiscoveryStartFailed, "", err, serviceIDs...)})
			return
		}
		s.trace(logrus.Fields{"services": serviceIDs}, "startDiscovery")
	})
}

// watchDevices installs the device-found listener feeding a fresh list into onUpdate.
func (s *Session) watchDevices(onUpdate DiscoveryHandler) {
	list := newDeviceList()

	s.mu.Lock()
	prev := s.stopFound
	s.stopFound = nil
	s.found = list
	s.mu.Unlock()

	if prev != nil {
		prev()
	}

	stop := s.platform.OnDeviceFound(func(devices []platform.Device) {
		for _, d := range devices {
			if !d.Named() {
				continue
			}

			list.deliver.Lock()
			snapshot, existed := list.upsert(d)
			s.trace(logrus.Fields{
				"device_id": d.ID,
				"name":      d.DisplayName(),
				"rssi":      d.RSSI,
				"updated":   existed,
				"count":     len(snapshot),
			}, "onDeviceFound")
			onUpdate(DiscoveryUpdate{Success: true, Devices: snapshot})
			list.deliver.Unlock()
		}
	})

	s.mu.Lock()
	if s.closed || s.found != list {
		s.mu.Unlock()
		stop()
		return
	}
	s.stopFound = stop
	s.mu.Unlock()
}

// StopDiscovery halts scanning without waiting. Found devices stay available via Devices.
func (s *Session) StopDiscovery() {
	s.trace(nil, "stopDiscovery")
	s.platform.StopDiscovery()
}

// Devices returns the devices accumulated by the latest discovery.
func (s *Session) Devices() []platform.Device {
	s.mu.Lock()
	list := s.found
	s.mu.Unlock()
	if list == nil {
		return nil
	}
	return list.snapshot()
}
