package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// connectAttempt is one run of the connection state machine.
type connectAttempt struct {
	id       string
	deviceID string
	result   *promise[struct{}]

	// linkSettled is set once the platform connect request reported back.
	linkSettled atomic.Bool
}

// Connect connects to deviceID and enumerates its services and characteristics.
//
// It returns once the session is Ready or the attempt failed. While an attempt is in
// flight a second Connect fails with ErrConnectInProgress. Discovery is stopped as the
// connect request is issued. If the platform does not answer within
// Options.ConnectTimeout the attempt fails with ErrConnectTimeout and the link is torn
// down; a late success is then disconnected instead of enumerated. Enumeration failures
// also tear the link down. Cancelling ctx fails the attempt the same way as a timeout.
func (s *Session) Connect(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newError(KindClosed, deviceID, nil)
	}
	if s.state.attemptActive() {
		current := s.deviceID
		s.mu.Unlock()
		return newError(KindConnectInProgress, deviceID, fmt.Errorf("attempt for %q still running", current))
	}

	a := &connectAttempt{
		id:       uuid.NewString(),
		deviceID: deviceID,
		result:   newPromise[struct{}](),
	}
	s.deviceID = deviceID
	s.state = StateConnecting
	s.attempt = a
	s.profile = newProfile()
	s.mu.Unlock()
	s.stateListeners.Emit(StateConnecting)

	log := s.logger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"attempt":   a.id,
		"timeout":   s.opts.ConnectTimeout,
	})
	log.Info("Connecting to BLE device...")

	timer := time.AfterFunc(s.opts.ConnectTimeout, func() {
		if a.linkSettled.Load() {
			return
		}
		log.Warn("BLE connect timed out")
		s.failAttempt(a, newError(KindConnectTimeout, deviceID,
			fmt.Errorf("no response within %s", s.opts.ConnectTimeout)), true)
	})
	defer timer.Stop()

	s.platform.Connect(deviceID, func(err error) {
		if !a.linkSettled.CompareAndSwap(false, true) {
			return
		}
		if err != nil {
			log.WithField("error", err).Warn("BLE connect failed")
			s.failAttempt(a, newError(KindConnectFailed, deviceID, err), false)
			return
		}
		s.trace(logrus.Fields{"device_id": deviceID, "attempt": a.id}, "createBLEConnection")
		if !s.advance(a, StateConnecting, StateServiceDiscovery) {
			log.Warn("BLE link came up after the attempt settled, tearing it down")
			s.dropStaleLink(a)
			return
		}

		s.enumerate(deviceID, func(err error) {
			if err != nil {
				log.WithField("error", err).Warn("BLE enumeration failed, disconnecting")
				s.failAttempt(a, err, true)
				return
			}
			if a.result.settle(struct{}{}, nil, func() { s.transition(a, StateReady) }) {
				log.Info("BLE device connected successfully")
			}
		})
	})
	s.StopDiscovery()

	select {
	case o := <-a.result.ch:
		return o.err
	case <-ctx.Done():
		s.failAttempt(a, newError(KindConnectFailed, deviceID, ctx.Err()), true)
		o := <-a.result.ch
		return o.err
	}
}

// failAttempt settles a with err if it has not settled yet. Only the winning failure
// moves the state to Failed and, with teardown, issues the disconnect before the caller
// of Connect observes the error.
func (s *Session) failAttempt(a *connectAttempt, err error, teardown bool) {
	a.result.settle(struct{}{}, err, func() {
		s.transition(a, StateFailed)
		if teardown {
			s.trace(logrus.Fields{"device_id": a.deviceID, "attempt": a.id}, "closeBLEConnection")
			s.platform.Disconnect(a.deviceID)
		}
	})
}

// transition moves the state machine if a is still the current attempt.
func (s *Session) transition(a *connectAttempt, to State) {
	s.mu.Lock()
	if s.attempt != a {
		s.mu.Unlock()
		return
	}
	s.state = to
	if to == StateFailed {
		s.profile = newProfile()
	}
	s.mu.Unlock()
	s.stateListeners.Emit(to)
}

// advance moves a from one state to the next only while a is current, unsettled and
// still in from. Reports whether the move happened.
func (s *Session) advance(a *connectAttempt, from, to State) bool {
	s.mu.Lock()
	if s.attempt != a || s.state != from || a.result.done() {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()
	s.stateListeners.Emit(to)
	return true
}

// dropStaleLink disconnects a link that came up for a settled attempt, unless a newer
// attempt to the same device owns it by now.
func (s *Session) dropStaleLink(a *connectAttempt) {
	s.mu.Lock()
	current := s.attempt
	s.mu.Unlock()

	if current != nil && current != a && current.deviceID == a.deviceID {
		s.logger.WithFields(logrus.Fields{
			"device_id": a.deviceID,
			"attempt":   a.id,
			"current":   current.id,
		}).Debug("Stale BLE link belongs to a newer attempt, keeping it")
		return
	}
	s.trace(logrus.Fields{"device_id": a.deviceID, "attempt": a.id}, "closeBLEConnection")
	s.platform.Disconnect(a.deviceID)
}

// Disconnect requests the platform to drop the current device without waiting. It is
// safe to call when not connected and does not reset DeviceID. An attempt still in
// flight fails with ErrConnectFailed.
func (s *Session) Disconnect() {
	s.mu.Lock()
	deviceID := s.deviceID
	a := s.attempt
	active := s.state.attemptActive()
	s.mu.Unlock()

	if active && a != nil {
		a.result.settle(struct{}{}, newError(KindConnectFailed, deviceID, fmt.Errorf("disconnected")))
	}

	s.mu.Lock()
	changed := s.state != StateIdle
	s.state = StateIdle
	s.attempt = nil
	s.profile = newProfile()
	s.mu.Unlock()
	if changed {
		s.stateListeners.Emit(StateIdle)
	}

	if deviceID == "" {
		return
	}
	s.trace(logrus.Fields{"device_id": deviceID}, "closeBLEConnection")
	s.platform.Disconnect(deviceID)
}
