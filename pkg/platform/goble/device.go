package goble

import (
	"context"

	"github.com/go-ble/ble"
)

// Client is the part of ble.Client the backend drives.
type Client interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// Device is the part of ble.Device the backend drives.
type Device interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Dial(ctx context.Context, addr string) (Client, error)
	Stop() error
}

// DeviceFactory creates the host ble.Device (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newHostDevice

// bleDevice adapts ble.Device to Device.
type bleDevice struct {
	dev ble.Device
}

// WrapDevice adapts a go-ble device.
func WrapDevice(dev ble.Device) Device {
	return &bleDevice{dev: dev}
}

func (d *bleDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	return d.dev.Scan(ctx, allowDup, h)
}

func (d *bleDevice) Dial(ctx context.Context, addr string) (Client, error) {
	client, err := d.dev.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (d *bleDevice) Stop() error {
	return d.dev.Stop()
}

func defaultDevice() (Device, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, err
	}
	return WrapDevice(dev), nil
}
