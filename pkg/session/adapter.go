package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/pkg/platform"
)

// Subscription is a handle to a persistent listener.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the listener. It is safe to call more than once.
func (sub *Subscription) Cancel() {
	if sub == nil || sub.cancel == nil {
		return
	}
	sub.once.Do(sub.cancel)
}

// OpenAdapter powers on the platform BLE stack.
func (s *Session) OpenAdapter(ctx context.Context) (platform.AdapterInfo, error) {
	p := newPromise[platform.AdapterInfo]()

	s.platform.OpenAdapter(func(info platform.AdapterInfo, err error) {
		if err != nil {
			s.logger.WithField("error", err).Warn("Failed to open BLE adapter")
			p.settle(info, newError(KindAdapterUnavailable, "", err))
			return
		}
		s.trace(logrus.Fields{"platform": info.Platform, "address": info.Address}, "openAdapter")
		p.settle(info, nil)
	})

	return p.wait(ctx, func(err error) error {
		return newError(KindAdapterUnavailable, "", err)
	})
}

// CloseAdapter tears the platform BLE stack down without waiting.
func (s *Session) CloseAdapter() {
	s.trace(nil, "closeAdapter")
	s.platform.CloseAdapter()
}

// QueryAdapterState returns the adapter state. As a side effect it hooks discovery up:
// when the adapter is already discovering the device-found listener is installed and
// feeds onUpdate; when it is available but idle, discovery is started for
// Options.ScanServices. A nil onUpdate skips both side effects and only reports the
// state.
func (s *Session) QueryAdapterState(ctx context.Context, onUpdate DiscoveryHandler) (platform.AdapterState, error) {
	p := newPromise[platform.AdapterState]()

	s.platform.GetAdapterState(func(st platform.AdapterState, err error) {
		if err != nil {
			p.settle(st, newError(KindAdapterUnavailable, "", err))
			return
		}
		s.trace(logrus.Fields{"available": st.Available, "discovering": st.Discovering}, "getAdapterState")

		p.settle(st, nil, func() {
			if onUpdate == nil {
				return
			}
			switch {
			case st.Discovering:
				s.watchDevices(onUpdate)
			case st.Available:
				s.StartDiscovery(s.opts.ScanServices, onUpdate)
			}
		})
	})

	return p.wait(ctx, func(err error) error {
		return newError(KindAdapterUnavailable, "", err)
	})
}

// OnAdapterStateChange registers cb for adapter power and availability transitions.
// The listener lives until the returned Subscription is cancelled or the session is
// closed.
func (s *Session) OnAdapterStateChange(cb func(platform.AdapterState)) *Subscription {
	sub := &Subscription{}
	stop := s.platform.OnAdapterStateChange(func(st platform.AdapterState) {
		s.trace(logrus.Fields{"available": st.Available, "discovering": st.Discovering}, "onAdapterStateChange")
		cb(st)
	})
	sub.cancel = func() {
		stop()
		s.mu.Lock()
		delete(s.stateSubs, sub)
		s.mu.Unlock()
	}

	s.mu.Lock()
	closed := s.closed
	if !closed {
		s.stateSubs[sub] = struct{}{}
	}
	s.mu.Unlock()

	if closed {
		sub.Cancel()
	}
	return sub
}
