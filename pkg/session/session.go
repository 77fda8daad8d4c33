// Package session turns the asynchronous host BLE central API into a single-device
// session: adapter lifecycle, device discovery, a guarded connection state machine with
// a connect timeout, service/characteristic enumeration, characteristic I/O, and
// per-characteristic notification routing.
//
// Blocking methods take a context and return once the underlying platform request has
// settled. Callbacks passed to the session (discovery updates, value handlers, adapter
// state listeners) run on platform goroutines and must not block for long.
package session

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/internal/listener"
	"github.com/srg/blesession/pkg/platform"
)

// Session wraps one peripheral connection lifecycle.
type Session struct {
	platform platform.Platform
	opts     Options
	logger   *logrus.Logger

	mu        sync.Mutex
	deviceID  string
	state     State
	attempt   *connectAttempt
	profile   *profile
	found     *deviceList
	stopFound func()
	stateSubs map[*Subscription]struct{}
	closed    bool

	registry       *registry
	stopDispatch   func()
	stateListeners *listener.Set[State]
}

// New creates a session over p. A nil opts uses DefaultOptions; a nil logger gets a
// fresh logrus logger (at debug level when opts.Debug is set).
func New(p platform.Platform, opts *Options, logger *logrus.Logger) *Session {
	o := opts.withDefaults()
	if logger == nil {
		logger = logrus.New()
		if o.Debug {
			logger.SetLevel(logrus.DebugLevel)
		}
	}

	s := &Session{
		platform:  p,
		opts:      o,
		logger:    logger,
		state:     StateIdle,
		profile:   newProfile(),
		stateSubs: make(map[*Subscription]struct{}),
		registry:  newRegistry(),

		stateListeners: listener.New[State](),
	}

	// One dispatcher for the whole session; handlers are looked up per event.
	s.stopDispatch = p.OnCharacteristicValueChange(s.dispatch)
	return s
}

// Options returns the effective options.
func (s *Session) Options() Options {
	return s.opts
}

// DeviceID returns the device targeted by the latest Connect. It is not cleared by
// Disconnect.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers cb for connection state transitions. cb runs on the
// goroutine that caused the transition and must not call back into Connect.
func (s *Session) OnStateChange(cb func(State)) *Subscription {
	return &Subscription{cancel: s.stateListeners.Add(cb)}
}

// Close releases every listener the session installed, stops discovery and
// disconnects. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := make([]*Subscription, 0, len(s.stateSubs))
	for sub := range s.stateSubs {
		subs = append(subs, sub)
	}
	stopFound := s.stopFound
	s.stopFound = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	if stopFound != nil {
		stopFound()
	}
	s.platform.StopDiscovery()
	s.Disconnect()

	if s.stopDispatch != nil {
		s.stopDispatch()
	}
	s.registry.clear()
	s.stateListeners.Clear()

	s.logger.Debug("BLE session closed")
}

// trace logs platform round-trips when Options.Debug is set.
func (s *Session) trace(fields logrus.Fields, msg string) {
	if !s.opts.Debug {
		return
	}
	s.logger.WithFields(fields).Debug(msg)
}
