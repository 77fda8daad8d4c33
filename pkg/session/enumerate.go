package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/pkg/platform"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// profile is the enumerated GATT layout of the connected device.
type profile struct {
	services []platform.Service
	chars    *orderedmap.OrderedMap[string, []platform.Characteristic] // normalized service UUID -> characteristics
}

func newProfile() *profile {
	return &profile{chars: orderedmap.New[string, []platform.Characteristic]()}
}

// DiscoverServices requests the service list of deviceID and then the characteristics
// of every service, one request per service. It returns nil once every branch has
// succeeded, in whatever order they complete, or the first branch failure. Branches
// still in flight after a failure are not cancelled; their results are ignored.
func (s *Session) DiscoverServices(ctx context.Context, deviceID string) error {
	p := newPromise[struct{}]()
	s.enumerate(deviceID, func(err error) {
		p.settle(struct{}{}, err)
	})
	_, err := p.wait(ctx, func(err error) error {
		return newError(KindServiceDiscoveryFailed, deviceID, err)
	})
	return err
}

// enumerate is the callback form of DiscoverServices. done is called exactly once.
func (s *Session) enumerate(deviceID string, done func(error)) {
	var once sync.Once
	finish := func(err error) {
		once.Do(func() { done(err) })
	}

	s.platform.DiscoverServices(deviceID, func(services []platform.Service, err error) {
		if err != nil {
			finish(newError(KindServiceDiscoveryFailed, deviceID, err))
			return
		}
		s.storeServices(deviceID, services)

		if len(services) == 0 {
			finish(nil)
			return
		}

		var remaining atomic.Int64
		remaining.Store(int64(len(services)))
		for _, svc := range services {
			s.trace(logrus.Fields{"device_id": deviceID, "service_uuid": svc.UUID}, "getBLEDeviceServices")
			s.discoverCharacteristics(deviceID, svc.UUID, func(_ []platform.Characteristic, err error) {
				if err != nil {
					finish(err)
					return
				}
				if remaining.Add(-1) == 0 {
					finish(nil)
				}
			})
		}
	})
}

// DiscoverCharacteristics requests the characteristics of one service of the current
// device and records them in the session profile.
func (s *Session) DiscoverCharacteristics(ctx context.Context, serviceUUID string) ([]platform.Characteristic, error) {
	deviceID := s.DeviceID()
	p := newPromise[[]platform.Characteristic]()
	s.discoverCharacteristics(deviceID, serviceUUID, func(chars []platform.Characteristic, err error) {
		p.settle(chars, err)
	})
	return p.wait(ctx, func(err error) error {
		return newError(KindCharacteristicDiscoveryFailed, deviceID, err, serviceUUID)
	})
}

// discoverCharacteristics resolves done first and only then classifies capabilities.
func (s *Session) discoverCharacteristics(deviceID, serviceUUID string, done func([]platform.Characteristic, error)) {
	s.platform.DiscoverCharacteristics(deviceID, serviceUUID, func(chars []platform.Characteristic, err error) {
		if err != nil {
			done(nil, newError(KindCharacteristicDiscoveryFailed, deviceID, err, serviceUUID))
			return
		}
		s.storeCharacteristics(deviceID, serviceUUID, chars)
		done(chars, nil)
		s.classify(deviceID, serviceUUID, chars)
	})
}

func (s *Session) classify(deviceID, serviceUUID string, chars []platform.Characteristic) {
	for i, c := range chars {
		fields := logrus.Fields{
			"device_id":    deviceID,
			"service_uuid": serviceUUID,
			"char_uuid":    c.UUID,
			"index":        i,
			"properties":   c.Properties.String(),
		}
		s.trace(fields, "getBLEDeviceCharacteristics")
		if c.Properties.Readable() {
			s.trace(fields, "Characteristic is readable")
		}
		if c.Properties.Writable() {
			s.trace(fields, "Characteristic is writable")
		}
		if c.Properties.Subscribable() {
			s.trace(fields, "Characteristic is subscribable")
		}
	}
}

func (s *Session) storeServices(deviceID string, services []platform.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceID != deviceID {
		return
	}
	s.profile.services = append([]platform.Service(nil), services...)
}

func (s *Session) storeCharacteristics(deviceID, serviceUUID string, chars []platform.Characteristic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceID != deviceID {
		return
	}
	s.profile.chars.Set(platform.NormalizeUUID(serviceUUID), append([]platform.Characteristic(nil), chars...))
}

// Services returns the services enumerated for the current device.
func (s *Session) Services() []platform.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]platform.Service(nil), s.profile.services...)
}

// Characteristics returns the characteristics enumerated for serviceUUID.
func (s *Session) Characteristics(serviceUUID string) []platform.Characteristic {
	s.mu.Lock()
	defer s.mu.Unlock()
	chars, _ := s.profile.chars.Get(platform.NormalizeUUID(serviceUUID))
	return append([]platform.Characteristic(nil), chars...)
}
