package testutils

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/srg/blesession/pkg/platform"
)

// CharacteristicConfig represents a characteristic of a simulated peripheral
type CharacteristicConfig struct {
	UUID          string   `json:"uuid"`
	Properties    string   `json:"properties,omitempty"` // e.g., "read,write,notify"
	Value         []byte   `json:"value,omitempty"`
	Notifications [][]byte `json:"notifications,omitempty"` // pushed after a subscribe
}

// ServiceConfig represents a service of a simulated peripheral
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// PeripheralConfig is the complete profile of a simulated peripheral
type PeripheralConfig struct {
	Address  string          `json:"address"`
	Name     string          `json:"name,omitempty"`
	RSSI     int             `json:"rssi,omitempty"`
	Services []ServiceConfig `json:"services"`
}

// PeripheralBuilder builds a Peripheral with a fluent API.
type PeripheralBuilder struct {
	cfg     PeripheralConfig
	nearby  []platform.Device
	failing map[string]error
}

// NewPeripheralBuilder creates a builder for a peripheral at address.
func NewPeripheralBuilder(address string) *PeripheralBuilder {
	return &PeripheralBuilder{
		cfg:     PeripheralConfig{Address: address},
		failing: make(map[string]error),
	}
}

// WithName sets the advertised name.
func (b *PeripheralBuilder) WithName(name string) *PeripheralBuilder {
	b.cfg.Name = name
	return b
}

// WithRSSI sets the advertised RSSI.
func (b *PeripheralBuilder) WithRSSI(rssi int) *PeripheralBuilder {
	b.cfg.RSSI = rssi
	return b
}

// WithService adds a service to the profile
func (b *PeripheralBuilder) WithService(uuid string) *PeripheralBuilder {
	b.cfg.Services = append(b.cfg.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralBuilder) WithCharacteristic(uuid, properties string, value []byte, notifications ...[]byte) *PeripheralBuilder {
	if len(b.cfg.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	last := &b.cfg.Services[len(b.cfg.Services)-1]
	last.Characteristics = append(last.Characteristics, CharacteristicConfig{
		UUID:          uuid,
		Properties:    properties,
		Value:         value,
		Notifications: notifications,
	})
	return b
}

// WithNearbyDevice adds another device reported by discovery.
func (b *PeripheralBuilder) WithNearbyDevice(d platform.Device) *PeripheralBuilder {
	b.nearby = append(b.nearby, d)
	return b
}

// WithFailure makes every request of method fail with err.
func (b *PeripheralBuilder) WithFailure(method string, err error) *PeripheralBuilder {
	b.failing[method] = err
	return b
}

// FromJSON replaces the profile with a JSON document
func (b *PeripheralBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var cfg PeripheralConfig
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		panic(fmt.Sprintf("PeripheralBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	if cfg.Address == "" {
		cfg.Address = b.cfg.Address
	}
	b.cfg = cfg
	return b
}

// Build creates the Peripheral.
func (b *PeripheralBuilder) Build() *Peripheral {
	p := &Peripheral{
		cfg:     b.cfg,
		nearby:  append([]platform.Device(nil), b.nearby...),
		failing: make(map[string]error, len(b.failing)),
		writes:  make(map[string][][]byte),
	}
	for k, v := range b.failing {
		p.failing[k] = v
	}
	return p
}

// ParseProperties converts a comma separated property list.
func ParseProperties(props string) platform.Properties {
	var p platform.Properties
	for _, name := range strings.Split(props, ",") {
		switch strings.TrimSpace(name) {
		case "read":
			p.Read = true
		case "write":
			p.Write = true
		case "write-without-response":
			p.WriteNoResponse = true
		case "notify":
			p.Notify = true
		case "indicate":
			p.Indicate = true
		}
	}
	return p
}

// Peripheral is a simulated device answering FakePlatform requests.
type Peripheral struct {
	cfg     PeripheralConfig
	nearby  []platform.Device
	failing map[string]error

	mu     sync.Mutex
	writes map[string][][]byte // normalized char UUID
}

// Address returns the peripheral address.
func (p *Peripheral) Address() string { return p.cfg.Address }

// Writes returns the payloads written to charID.
func (p *Peripheral) Writes(charID string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.writes[platform.NormalizeUUID(charID)]...)
}

func (p *Peripheral) service(id string) (ServiceConfig, bool) {
	for _, s := range p.cfg.Services {
		if platform.NormalizeUUID(s.UUID) == platform.NormalizeUUID(id) {
			return s, true
		}
	}
	return ServiceConfig{}, false
}

func (p *Peripheral) characteristic(serviceID, charID string) (CharacteristicConfig, bool) {
	svc, ok := p.service(serviceID)
	if !ok {
		return CharacteristicConfig{}, false
	}
	for _, c := range svc.Characteristics {
		if platform.NormalizeUUID(c.UUID) == platform.NormalizeUUID(charID) {
			return c, true
		}
	}
	return CharacteristicConfig{}, false
}

// Serve answers every request of f from p on background goroutines.
func (f *FakePlatform) Serve(p *Peripheral) {
	f.SetResponder(func(r *Request) bool {
		go f.answer(p, r)
		return true
	})
}

func (f *FakePlatform) answer(p *Peripheral, r *Request) {
	err := p.failing[r.Method]

	switch r.Method {
	case "OpenAdapter":
		r.CompleteAdapterInfo(platform.AdapterInfo{Platform: "fake"}, err)
	case "GetAdapterState":
		r.CompleteAdapterState(platform.AdapterState{Available: err == nil}, err)
	case "StartDiscovery":
		r.Complete(err)
		if err != nil {
			return
		}
		f.EmitDevices(platform.Device{ID: p.cfg.Address, Name: p.cfg.Name, RSSI: p.cfg.RSSI, AdvertisServiceUUIDs: p.serviceIDs()})
		for _, d := range p.nearby {
			f.EmitDevices(d)
		}
	case "Connect":
		if err == nil && platform.NormalizeUUID(r.DeviceID) != platform.NormalizeUUID(p.cfg.Address) {
			err = platform.ErrNotConnected
		}
		r.Complete(err)
	case "DiscoverServices":
		if err != nil {
			r.CompleteServices(nil, err)
			return
		}
		services := make([]platform.Service, 0, len(p.cfg.Services))
		for _, s := range p.cfg.Services {
			services = append(services, platform.Service{UUID: platform.NormalizeUUID(s.UUID), IsPrimary: true})
		}
		r.CompleteServices(services, nil)
	case "DiscoverCharacteristics":
		svc, ok := p.service(r.ServiceID)
		if err == nil && !ok {
			err = platform.ErrUnknownService
		}
		if err != nil {
			r.CompleteCharacteristics(nil, err)
			return
		}
		chars := make([]platform.Characteristic, 0, len(svc.Characteristics))
		for _, c := range svc.Characteristics {
			chars = append(chars, platform.Characteristic{
				UUID:        platform.NormalizeUUID(c.UUID),
				ServiceUUID: platform.NormalizeUUID(svc.UUID),
				Properties:  ParseProperties(c.Properties),
			})
		}
		r.CompleteCharacteristics(chars, nil)
	case "ReadCharacteristic":
		c, ok := p.characteristic(r.ServiceID, r.CharID)
		if err == nil && !ok {
			err = platform.ErrUnknownChar
		}
		r.Complete(err)
		if err == nil {
			f.EmitValue(p.valueChange(r, c.Value))
		}
	case "WriteCharacteristic":
		if _, ok := p.characteristic(r.ServiceID, r.CharID); err == nil && !ok {
			err = platform.ErrUnknownChar
		}
		if err == nil {
			p.mu.Lock()
			key := platform.NormalizeUUID(r.CharID)
			p.writes[key] = append(p.writes[key], r.Value)
			p.mu.Unlock()
		}
		r.Complete(err)
	case "SetNotifyState":
		c, ok := p.characteristic(r.ServiceID, r.CharID)
		if err == nil && !ok {
			err = platform.ErrUnknownChar
		}
		r.Complete(err)
		if err != nil || !r.Enable {
			return
		}
		for _, v := range c.Notifications {
			f.EmitValue(p.valueChange(r, v))
		}
	}
}

func (p *Peripheral) serviceIDs() []string {
	ids := make([]string, 0, len(p.cfg.Services))
	for _, s := range p.cfg.Services {
		ids = append(ids, platform.NormalizeUUID(s.UUID))
	}
	return ids
}

func (p *Peripheral) valueChange(r *Request, value []byte) platform.ValueChange {
	return platform.ValueChange{
		DeviceID:         r.DeviceID,
		ServiceID:        platform.NormalizeUUID(r.ServiceID),
		CharacteristicID: platform.NormalizeUUID(r.CharID),
		Value:            append([]byte(nil), value...),
	}
}
