// Package platform describes the host Bluetooth Low Energy central API that a
// session drives.
//
// Every request is asynchronous: it returns immediately and reports its outcome
// exactly once through the supplied completion callback, possibly on another
// goroutine. Listener registrations (the On* methods) stay active until the
// returned cancel func is called.
package platform

import "errors"

// Errors reported by platform implementations.
var (
	ErrBluetoothOff     = errors.New("bluetooth is turned off")
	ErrAdapterNotOpen   = errors.New("adapter not open")
	ErrNotConnected     = errors.New("device not connected")
	ErrAlreadyConnected = errors.New("device already connected")
	ErrUnknownService   = errors.New("unknown service")
	ErrUnknownChar      = errors.New("unknown characteristic")
	ErrUnsupported      = errors.New("unsupported")
)

// AdapterInfo is the opaque result of opening the adapter.
type AdapterInfo struct {
	Platform string
	Address  string
}

// AdapterState is the adapter availability snapshot.
type AdapterState struct {
	Available   bool
	Discovering bool
}

// Device is a peripheral reported by discovery.
type Device struct {
	ID                   string
	Name                 string
	LocalName            string
	RSSI                 int
	AdvertisServiceUUIDs []string
	AdvertisData         []byte
	ServiceData          map[string][]byte
}

// Named reports whether the device carries a name or a local name.
func (d Device) Named() bool {
	return d.Name != "" || d.LocalName != ""
}

// DisplayName returns the best available name.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.LocalName
}

// Service is a GATT service of a connected device.
type Service struct {
	UUID      string
	IsPrimary bool
}

// Properties are the capability flags of a characteristic. They are independent.
type Properties struct {
	Read            bool
	Write           bool
	WriteNoResponse bool
	Notify          bool
	Indicate        bool
}

// Readable reports whether the characteristic supports reads.
func (p Properties) Readable() bool { return p.Read }

// Writable reports whether the characteristic accepts writes of either kind.
func (p Properties) Writable() bool { return p.Write || p.WriteNoResponse }

// Subscribable reports whether the characteristic can push values.
func (p Properties) Subscribable() bool { return p.Notify || p.Indicate }

// String renders the set flags as a comma separated list.
func (p Properties) String() string {
	var s string
	add := func(set bool, name string) {
		if !set {
			return
		}
		if s != "" {
			s += ","
		}
		s += name
	}
	add(p.Read, "read")
	add(p.Write, "write")
	add(p.WriteNoResponse, "write-without-response")
	add(p.Notify, "notify")
	add(p.Indicate, "indicate")
	return s
}

// Characteristic is a GATT characteristic of a service.
type Characteristic struct {
	UUID        string
	ServiceUUID string
	Properties  Properties
}

// ValueChange is a characteristic value pushed by the device, either as a read
// reply or as a notification/indication.
type ValueChange struct {
	DeviceID         string
	ServiceID        string
	CharacteristicID string
	Value            []byte
}

// DiscoveryOptions configures a scan.
type DiscoveryOptions struct {
	Services        []string
	AllowDuplicates bool
}

// Adapter covers the adapter lifecycle.
type Adapter interface {
	OpenAdapter(done func(AdapterInfo, error))
	CloseAdapter()
	GetAdapterState(done func(AdapterState, error))
	OnAdapterStateChange(listener func(AdapterState)) (cancel func())
}

// Scanner covers device discovery.
type Scanner interface {
	StartDiscovery(opts DiscoveryOptions, done func(error))
	StopDiscovery()
	OnDeviceFound(listener func([]Device)) (cancel func())
}

// Central covers connections and GATT client requests.
type Central interface {
	Connect(deviceID string, done func(error))
	Disconnect(deviceID string)
	DiscoverServices(deviceID string, done func([]Service, error))
	DiscoverCharacteristics(deviceID, serviceID string, done func([]Characteristic, error))
	ReadCharacteristic(deviceID, serviceID, charID string, done func(error))
	WriteCharacteristic(deviceID, serviceID, charID string, value []byte, done func(error))
	SetNotifyState(deviceID, serviceID, charID string, enable bool, done func(error))
	OnCharacteristicValueChange(listener func(ValueChange)) (cancel func())
}

// Platform is the full host BLE central API.
type Platform interface {
	Adapter
	Scanner
	Central
}
