package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// requireReady returns the connected device or ErrNotReady.
func (s *Session) requireReady(uuids ...string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return "", newError(KindNotReady, s.deviceID, fmt.Errorf("session is %s", s.state), uuids...)
	}
	return s.deviceID, nil
}

// Read requests the value of a characteristic. On success onValue becomes the handler
// for charID, so the read reply and every later pushed value are routed to it. A failed
// read leaves the previous handler in place.
func (s *Session) Read(ctx context.Context, serviceID, charID string, onValue ValueHandler) error {
	deviceID, err := s.requireReady(serviceID, charID)
	if err != nil {
		return err
	}

	p := newPromise[struct{}]()
	s.platform.ReadCharacteristic(deviceID, serviceID, charID, func(err error) {
		if err != nil {
			p.settle(struct{}{}, newError(KindReadFailed, deviceID, err, serviceID, charID))
			return
		}
		p.settle(struct{}{}, nil, func() {
			s.registry.set(charID, onValue)
			s.trace(logrus.Fields{"device_id": deviceID, "service_uuid": serviceID, "char_uuid": charID}, "readBLECharacteristicValue")
		})
	})

	_, err = p.wait(ctx, func(err error) error {
		return newError(KindReadFailed, deviceID, err, serviceID, charID)
	})
	return err
}

// Write writes payload to a characteristic and waits for the platform to confirm.
func (s *Session) Write(ctx context.Context, serviceID, charID string, payload []byte) error {
	deviceID, err := s.requireReady(serviceID, charID)
	if err != nil {
		return err
	}

	s.trace(logrus.Fields{"device_id": deviceID, "char_uuid": charID, "payload": fmt.Sprintf("%x", payload)}, "writeBLECharacteristicValue buffer")

	p := newPromise[struct{}]()
	s.platform.WriteCharacteristic(deviceID, serviceID, charID, payload, func(err error) {
		if err != nil {
			p.settle(struct{}{}, newError(KindWriteFailed, deviceID, err, serviceID, charID))
			return
		}
		s.trace(logrus.Fields{"device_id": deviceID, "char_uuid": charID}, "writeBLECharacteristicValue")
		p.settle(struct{}{}, nil)
	})

	_, err = p.wait(ctx, func(err error) error {
		return newError(KindWriteFailed, deviceID, err, serviceID, charID)
	})
	return err
}

// WriteBestEffort writes payload without waiting. The outcome is only logged.
func (s *Session) WriteBestEffort(serviceID, charID string, payload []byte) {
	log := s.logger.WithFields(logrus.Fields{"service_uuid": serviceID, "char_uuid": charID})

	deviceID, err := s.requireReady(serviceID, charID)
	if err != nil {
		log.WithField("error", err).Warn("Dropping best-effort write")
		return
	}

	s.platform.WriteCharacteristic(deviceID, serviceID, charID, payload, func(err error) {
		if err != nil {
			log.WithFields(logrus.Fields{"device_id": deviceID, "error": err}).Warn("Best-effort write failed")
			return
		}
		s.trace(logrus.Fields{"device_id": deviceID, "char_uuid": charID, "bytes": len(payload)}, "writeBLECharacteristicValue")
	})
}

// Subscribe enables notifications or indications on a characteristic. On success
// onValue replaces any handler registered for charID.
func (s *Session) Subscribe(ctx context.Context, serviceID, charID string, onValue ValueHandler) error {
	deviceID, err := s.requireReady(serviceID, charID)
	if err != nil {
		return err
	}

	p := newPromise[struct{}]()
	s.platform.SetNotifyState(deviceID, serviceID, charID, true, func(err error) {
		if err != nil {
			p.settle(struct{}{}, newError(KindSubscribeFailed, deviceID, err, serviceID, charID))
			return
		}
		p.settle(struct{}{}, nil, func() {
			s.registry.set(charID, onValue)
			s.trace(logrus.Fields{"device_id": deviceID, "service_uuid": serviceID, "char_uuid": charID}, "notifyBLECharacteristicValueChange")
		})
	})

	_, err = p.wait(ctx, func(err error) error {
		return newError(KindSubscribeFailed, deviceID, err, serviceID, charID)
	})
	return err
}

// Unsubscribe stops delivery for charID at once and then asks the platform to disable
// notifications. The handler stays removed even if the platform request fails.
func (s *Session) Unsubscribe(ctx context.Context, serviceID, charID string) error {
	s.registry.remove(charID)

	deviceID, err := s.requireReady(serviceID, charID)
	if err != nil {
		return err
	}

	p := newPromise[struct{}]()
	s.platform.SetNotifyState(deviceID, serviceID, charID, false, func(err error) {
		if err != nil {
			p.settle(struct{}{}, newError(KindUnsubscribeFailed, deviceID, err, serviceID, charID))
			return
		}
		s.trace(logrus.Fields{"device_id": deviceID, "char_uuid": charID}, "unNotifyBLECharacteristicValueChange")
		p.settle(struct{}{}, nil)
	})

	_, err = p.wait(ctx, func(err error) error {
		return newError(KindUnsubscribeFailed, deviceID, err, serviceID, charID)
	})
	return err
}
