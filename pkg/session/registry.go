package session

import (
	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/pkg/platform"
)

// ValueHandler receives characteristic values pushed by the device.
type ValueHandler func(platform.ValueChange)

// registry maps a normalized characteristic UUID to its single handler.
type registry struct {
	handlers *hashmap.Map[string, ValueHandler]
}

func newRegistry() *registry {
	return &registry{handlers: hashmap.New[string, ValueHandler]()}
}

func (r *registry) set(charID string, h ValueHandler) {
	r.handlers.Set(platform.NormalizeUUID(charID), h)
}

func (r *registry) remove(charID string) bool {
	return r.handlers.Del(platform.NormalizeUUID(charID))
}

func (r *registry) lookup(charID string) (ValueHandler, bool) {
	return r.handlers.Get(platform.NormalizeUUID(charID))
}

func (r *registry) len() int {
	return r.handlers.Len()
}

func (r *registry) clear() {
	var keys []string
	r.handlers.Range(func(k string, _ ValueHandler) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		r.handlers.Del(k)
	}
}

// dispatch routes a value change to the handler registered for its characteristic at
// the time of the event.
func (s *Session) dispatch(vc platform.ValueChange) {
	s.trace(logrus.Fields{
		"device_id": vc.DeviceID,
		"char_uuid": vc.CharacteristicID,
		"bytes":     len(vc.Value),
	}, "onBLECharacteristicValueChange")

	h, ok := s.registry.lookup(vc.CharacteristicID)
	if !ok || h == nil {
		return
	}
	h(vc)
}

// Handlers returns the number of characteristics with a registered handler.
func (s *Session) Handlers() int {
	return s.registry.len()
}
