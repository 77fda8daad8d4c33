package goble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

type mockDevice struct {
	mock.Mock
}

func (m *mockDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	args := m.Called(ctx, allowDup, h)
	return args.Error(0)
}

func (m *mockDevice) Dial(ctx context.Context, addr string) (Client, error) {
	args := m.Called(ctx, addr)
	c, _ := args.Get(0).(Client)
	return c, args.Error(1)
}

func (m *mockDevice) Stop() error {
	args := m.Called()
	return args.Error(0)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	s, _ := args.Get(0).([]*ble.Service)
	return s, args.Error(1)
}

func (m *mockClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	c, _ := args.Get(0).([]*ble.Characteristic)
	return c, args.Error(1)
}

func (m *mockClient) DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error) {
	args := m.Called(filter, c)
	d, _ := args.Get(0).([]*ble.Descriptor)
	return d, args.Error(1)
}

func (m *mockClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	args := m.Called(c, value, noRsp)
	return args.Error(0)
}

func (m *mockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	args := m.Called(c, ind, h)
	return args.Error(0)
}

func (m *mockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	args := m.Called(c, ind)
	return args.Error(0)
}

func (m *mockClient) CancelConnection() error {
	args := m.Called()
	return args.Error(0)
}

// advertisement is a static ble.Advertisement.
type advertisement struct {
	addr        string
	name        string
	rssi        int
	mfg         []byte
	services    []ble.UUID
	serviceData []ble.ServiceData
}

func (a *advertisement) LocalName() string              { return a.name }
func (a *advertisement) ManufacturerData() []byte       { return a.mfg }
func (a *advertisement) ServiceData() []ble.ServiceData { return a.serviceData }
func (a *advertisement) Services() []ble.UUID           { return a.services }
func (a *advertisement) OverflowService() []ble.UUID    { return nil }
func (a *advertisement) TxPowerLevel() int              { return 0 }
func (a *advertisement) Connectable() bool              { return true }
func (a *advertisement) SolicitedService() []ble.UUID   { return nil }
func (a *advertisement) RSSI() int                      { return a.rssi }
func (a *advertisement) Addr() ble.Addr                 { return ble.NewAddr(a.addr) }
