package testutils

import (
	"sync"
	"testing"
	"time"

	"github.com/srg/blesession/internal/listener"
	"github.com/srg/blesession/pkg/platform"
)

// Request is an asynchronous platform request captured by FakePlatform. Tests complete
// it with one of the Complete* methods, in any order and from any goroutine.
type Request struct {
	Method    string
	DeviceID  string
	ServiceID string
	CharID    string
	Value     []byte
	Enable    bool
	Discovery platform.DiscoveryOptions

	done any
}

// Complete finishes requests whose callback takes only an error.
func (r *Request) Complete(err error) {
	r.done.(func(error))(err)
}

// CompleteAdapterInfo finishes an OpenAdapter request.
func (r *Request) CompleteAdapterInfo(info platform.AdapterInfo, err error) {
	r.done.(func(platform.AdapterInfo, error))(info, err)
}

// CompleteAdapterState finishes a GetAdapterState request.
func (r *Request) CompleteAdapterState(st platform.AdapterState, err error) {
	r.done.(func(platform.AdapterState, error))(st, err)
}

// CompleteServices finishes a DiscoverServices request.
func (r *Request) CompleteServices(services []platform.Service, err error) {
	r.done.(func([]platform.Service, error))(services, err)
}

// CompleteCharacteristics finishes a DiscoverCharacteristics request.
func (r *Request) CompleteCharacteristics(chars []platform.Characteristic, err error) {
	r.done.(func([]platform.Characteristic, error))(chars, err)
}

// FakePlatform is a scriptable platform.Platform. Asynchronous requests are queued per
// method until the test completes them; fire-and-forget requests are only counted.
type FakePlatform struct {
	mu            sync.Mutex
	responder     func(*Request) bool
	queues        map[string]chan *Request
	disconnects   []string
	stopDiscovery int
	closeAdapter  int

	stateListeners *listener.Set[platform.AdapterState]
	deviceFound    *listener.Set[[]platform.Device]
	valueChange    *listener.Set[platform.ValueChange]
}

var _ platform.Platform = (*FakePlatform)(nil)

// NewFakePlatform creates an empty FakePlatform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		queues:         make(map[string]chan *Request),
		stateListeners: listener.New[platform.AdapterState](),
		deviceFound:    listener.New[[]platform.Device](),
		valueChange:    listener.New[platform.ValueChange](),
	}
}

func (f *FakePlatform) queue(method string) chan *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queues[method]
	if !ok {
		q = make(chan *Request, 64)
		f.queues[method] = q
	}
	return q
}

// SetResponder installs fn to answer requests. Requests fn declines (returns false) are
// queued for Expect.
func (f *FakePlatform) SetResponder(fn func(*Request) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responder = fn
}

func (f *FakePlatform) push(r *Request) {
	f.mu.Lock()
	respond := f.responder
	f.mu.Unlock()
	if respond != nil && respond(r) {
		return
	}
	f.queue(r.Method) <- r
}

// Expect returns the next pending request for method, failing the test after 2s.
func (f *FakePlatform) Expect(t testing.TB, method string) *Request {
	t.Helper()
	select {
	case r := <-f.queue(method):
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s request", method)
		return nil
	}
}

// ExpectNone asserts that no request for method is pending.
func (f *FakePlatform) ExpectNone(t testing.TB, method string) {
	t.Helper()
	select {
	case r := <-f.queue(method):
		t.Fatalf("unexpected %s request: %+v", method, r)
	default:
	}
}

// Disconnects returns the device IDs passed to Disconnect, in call order.
func (f *FakePlatform) Disconnects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.disconnects...)
}

// StopDiscoveryCalls returns how many times StopDiscovery was called.
func (f *FakePlatform) StopDiscoveryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopDiscovery
}

// CloseAdapterCalls returns how many times CloseAdapter was called.
func (f *FakePlatform) CloseAdapterCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeAdapter
}

// EmitDevices delivers one device-found event.
func (f *FakePlatform) EmitDevices(devices ...platform.Device) {
	f.deviceFound.Emit(devices)
}

// EmitValue delivers a characteristic value change.
func (f *FakePlatform) EmitValue(vc platform.ValueChange) {
	f.valueChange.Emit(vc)
}

// EmitAdapterState delivers an adapter state transition.
func (f *FakePlatform) EmitAdapterState(st platform.AdapterState) {
	f.stateListeners.Emit(st)
}

// DeviceFoundListeners returns the number of installed device-found listeners.
func (f *FakePlatform) DeviceFoundListeners() int { return f.deviceFound.Len() }

// ValueChangeListeners returns the number of installed value-change listeners.
func (f *FakePlatform) ValueChangeListeners() int { return f.valueChange.Len() }

// AdapterStateListeners returns the number of installed adapter state listeners.
func (f *FakePlatform) AdapterStateListeners() int { return f.stateListeners.Len() }

func (f *FakePlatform) OpenAdapter(done func(platform.AdapterInfo, error)) {
	f.push(&Request{Method: "OpenAdapter", done: done})
}

func (f *FakePlatform) CloseAdapter() {
	f.mu.Lock()
	f.closeAdapter++
	f.mu.Unlock()
}

func (f *FakePlatform) GetAdapterState(done func(platform.AdapterState, error)) {
	f.push(&Request{Method: "GetAdapterState", done: done})
}

func (f *FakePlatform) OnAdapterStateChange(l func(platform.AdapterState)) func() {
	return f.stateListeners.Add(l)
}

func (f *FakePlatform) StartDiscovery(opts platform.DiscoveryOptions, done func(error)) {
	f.push(&Request{Method: "StartDiscovery", Discovery: opts, done: done})
}

func (f *FakePlatform) StopDiscovery() {
	f.mu.Lock()
	f.stopDiscovery++
	f.mu.Unlock()
}

func (f *FakePlatform) OnDeviceFound(l func([]platform.Device)) func() {
	return f.deviceFound.Add(l)
}

func (f *FakePlatform) Connect(deviceID string, done func(error)) {
	f.push(&Request{Method: "Connect", DeviceID: deviceID, done: done})
}

func (f *FakePlatform) Disconnect(deviceID string) {
	f.mu.Lock()
	f.disconnects = append(f.disconnects, deviceID)
	f.mu.Unlock()
}

func (f *FakePlatform) DiscoverServices(deviceID string, done func([]platform.Service, error)) {
	f.push(&Request{Method: "DiscoverServices", DeviceID: deviceID, done: done})
}

func (f *FakePlatform) DiscoverCharacteristics(deviceID, serviceID string, done func([]platform.Characteristic, error)) {
	f.push(&Request{Method: "DiscoverCharacteristics", DeviceID: deviceID, ServiceID: serviceID, done: done})
}

func (f *FakePlatform) ReadCharacteristic(deviceID, serviceID, charID string, done func(error)) {
	f.push(&Request{Method: "ReadCharacteristic", DeviceID: deviceID, ServiceID: serviceID, CharID: charID, done: done})
}

func (f *FakePlatform) WriteCharacteristic(deviceID, serviceID, charID string, value []byte, done func(error)) {
	f.push(&Request{Method: "WriteCharacteristic", DeviceID: deviceID, ServiceID: serviceID, CharID: charID,
		Value: append([]byte(nil), value...), done: done})
}

func (f *FakePlatform) SetNotifyState(deviceID, serviceID, charID string, enable bool, done func(error)) {
	f.push(&Request{Method: "SetNotifyState", DeviceID: deviceID, ServiceID: serviceID, CharID: charID, Enable: enable, done: done})
}

func (f *FakePlatform) OnCharacteristicValueChange(l func(platform.ValueChange)) func() {
	return f.valueChange.Add(l)
}
