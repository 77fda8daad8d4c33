// Package goble implements platform.Platform on top of github.com/go-ble/ble.
//
// Requests run on their own goroutines and report through the completion callbacks.
// GATT requests to one device are serialized.
package goble

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blesession/internal/groutine"
	"github.com/srg/blesession/internal/listener"
	"github.com/srg/blesession/pkg/platform"
)

// ScanStartGrace is how long a scan must run without failing before StartDiscovery
// reports success.
var ScanStartGrace = 200 * time.Millisecond

// link is one connected (or dialing) peripheral.
type link struct {
	mu     sync.Mutex // serializes GATT requests
	cancel context.CancelFunc
	client Client

	services map[string]*ble.Service        // normalized service UUID
	chars    map[string]*ble.Characteristic // normalized "service/char"
}

func charKey(serviceID, charID string) string {
	return platform.NormalizeUUID(serviceID) + "/" + platform.NormalizeUUID(charID)
}

// Platform is the go-ble backed platform.Platform.
type Platform struct {
	logger  *logrus.Logger
	factory func() (Device, error)

	mu         sync.Mutex
	dev        Device
	scanCancel context.CancelFunc
	links      map[string]*link

	stateChanged *listener.Set[platform.AdapterState]
	deviceFound  *listener.Set[[]platform.Device]
	valueChanged *listener.Set[platform.ValueChange]
}

var _ platform.Platform = (*Platform)(nil)

// New creates a backend. A nil factory uses the host device from DeviceFactory.
func New(logger *logrus.Logger, factory func() (Device, error)) *Platform {
	if logger == nil {
		logger = logrus.New()
	}
	if factory == nil {
		factory = defaultDevice
	}
	return &Platform{
		logger:       logger,
		factory:      factory,
		links:        make(map[string]*link),
		stateChanged: listener.New[platform.AdapterState](),
		deviceFound:  listener.New[[]platform.Device](),
		valueChanged: listener.New[platform.ValueChange](),
	}
}

func (p *Platform) run(name string, fn func()) {
	groutine.Go(context.Background(), name, func(context.Context) { fn() })
}

func (p *Platform) stateLocked() platform.AdapterState {
	return platform.AdapterState{Available: p.dev != nil, Discovering: p.scanCancel != nil}
}

func (p *Platform) emitState() {
	p.mu.Lock()
	st := p.stateLocked()
	p.mu.Unlock()
	p.stateChanged.Emit(st)
}

func (p *Platform) device() (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return nil, platform.ErrAdapterNotOpen
	}
	return p.dev, nil
}

// OpenAdapter creates the host device. Opening an open adapter is a no-op.
func (p *Platform) OpenAdapter(done func(platform.AdapterInfo, error)) {
	p.run("ble-open-adapter", func() {
		info := platform.AdapterInfo{Platform: runtime.GOOS}

		p.mu.Lock()
		if p.dev != nil {
			p.mu.Unlock()
			done(info, nil)
			return
		}
		p.mu.Unlock()

		dev, err := p.factory()
		if err != nil {
			err = NormalizeError(err)
			p.logger.WithField("error", err).Error("Failed to create BLE device")
			done(info, err)
			return
		}

		p.mu.Lock()
		p.dev = dev
		p.mu.Unlock()

		p.logger.WithField("platform", info.Platform).Debug("BLE adapter opened")
		p.emitState()
		done(info, nil)
	})
}

// CloseAdapter stops scanning, drops every link and releases the host device.
func (p *Platform) CloseAdapter() {
	p.mu.Lock()
	dev := p.dev
	p.dev = nil
	stopScan := p.scanCancel
	p.scanCancel = nil
	links := p.links
	p.links = make(map[string]*link)
	p.mu.Unlock()

	if stopScan != nil {
		stopScan()
	}
	for id, l := range links {
		p.dropLink(id, l)
	}
	if dev != nil {
		if err := dev.Stop(); err != nil {
			p.logger.WithField("error", err).Warn("Failed to stop BLE device")
		}
		p.emitState()
	}
}

func (p *Platform) GetAdapterState(done func(platform.AdapterState, error)) {
	p.mu.Lock()
	st := p.stateLocked()
	p.mu.Unlock()
	p.run("ble-adapter-state", func() { done(st, nil) })
}

func (p *Platform) OnAdapterStateChange(l func(platform.AdapterState)) func() {
	return p.stateChanged.Add(l)
}

// StartDiscovery scans until StopDiscovery. Success is reported once the scan has run
// for ScanStartGrace without failing.
func (p *Platform) StartDiscovery(opts platform.DiscoveryOptions, done func(error)) {
	dev, err := p.device()
	if err != nil {
		p.run("ble-scan-start", func() { done(err) })
		return
	}

	services := platform.NormalizeUUIDs(opts.Services)
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	prev := p.scanCancel
	p.scanCancel = cancel
	p.mu.Unlock()
	if prev != nil {
		prev()
	}
	p.emitState()

	var once sync.Once
	report := func(err error) { once.Do(func() { done(err) }) }

	timer := time.AfterFunc(ScanStartGrace, func() { report(nil) })

	p.run("ble-scan", func() {
		err := dev.Scan(ctx, opts.AllowDuplicates, func(adv ble.Advertisement) {
			d := deviceFromAdvertisement(adv)
			if !advertises(d, services) {
				return
			}
			p.deviceFound.Emit([]platform.Device{d})
		})
		timer.Stop()

		p.mu.Lock()
		if p.scanCancel != nil && ctx.Err() == nil {
			p.scanCancel = nil
		}
		p.mu.Unlock()
		cancel()

		switch {
		case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			report(nil)
		default:
			err = NormalizeError(err)
			p.logger.WithField("error", err).Warn("BLE scan stopped with error")
			report(err)
			p.emitState()
		}
	})
}

func (p *Platform) StopDiscovery() {
	p.mu.Lock()
	stop := p.scanCancel
	p.scanCancel = nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	p.emitState()
}

func (p *Platform) OnDeviceFound(l func([]platform.Device)) func() {
	return p.deviceFound.Add(l)
}

// Connect dials deviceID. A Disconnect issued while dialing aborts the dial.
func (p *Platform) Connect(deviceID string, done func(error)) {
	dev, err := p.device()
	if err != nil {
		p.run("ble-connect", func() { done(err) })
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &link{
		cancel:   cancel,
		services: make(map[string]*ble.Service),
		chars:    make(map[string]*ble.Characteristic),
	}

	p.mu.Lock()
	if _, exists := p.links[deviceID]; exists {
		p.mu.Unlock()
		cancel()
		p.run("ble-connect", func() { done(platform.ErrAlreadyConnected) })
		return
	}
	p.links[deviceID] = l
	p.mu.Unlock()

	p.run("ble-connect", func() {
		log := p.logger.WithField("address", deviceID)
		log.Debug("Dialing BLE device...")

		client, err := dev.Dial(ctx, deviceID)
		if err != nil {
			p.mu.Lock()
			if p.links[deviceID] == l {
				delete(p.links, deviceID)
			}
			p.mu.Unlock()
			cancel()

			err = NormalizeError(err)
			log.WithField("error", err).Warn("Failed to dial BLE device")
			done(err)
			return
		}

		p.mu.Lock()
		current := p.links[deviceID] == l
		if current {
			l.mu.Lock()
			l.client = client
			l.mu.Unlock()
		}
		p.mu.Unlock()

		if !current {
			// disconnected while dialing
			if err := client.CancelConnection(); err != nil {
				log.WithField("error", err).Debug("Failed to cancel aborted BLE connection")
			}
			done(platform.ErrNotConnected)
			return
		}

		p.watchDisconnect(deviceID, l, client)
		log.Debug("BLE link established")
		done(nil)
	})
}

// watchDisconnect drops the link when the client reports a remote disconnection.
func (p *Platform) watchDisconnect(deviceID string, l *link, client Client) {
	dc, ok := client.(interface{ Disconnected() <-chan struct{} })
	if !ok {
		p.logger.Debug("Client does not support Disconnected() channel")
		return
	}
	groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
		<-dc.Disconnected()
		p.mu.Lock()
		current := p.links[deviceID] == l
		if current {
			delete(p.links, deviceID)
		}
		p.mu.Unlock()
		if current {
			p.logger.WithField("address", deviceID).Warn("BLE device reported disconnection")
			l.cancel()
		}
	})
}

// Disconnect drops deviceID. It is a no-op for unknown devices.
func (p *Platform) Disconnect(deviceID string) {
	p.mu.Lock()
	l, ok := p.links[deviceID]
	delete(p.links, deviceID)
	p.mu.Unlock()

	if !ok {
		p.logger.WithField("address", deviceID).Debug("Disconnect called but already disconnected")
		return
	}
	p.dropLink(deviceID, l)
}

func (p *Platform) dropLink(deviceID string, l *link) {
	l.cancel()

	p.run("ble-disconnect", func() {
		l.mu.Lock()
		client := l.client
		l.client = nil
		l.mu.Unlock()

		if client == nil {
			return
		}
		log := p.logger.WithField("address", deviceID)
		if err := client.CancelConnection(); err != nil {
			log.WithField("error", NormalizeError(err)).Warn("BLE device disconnected with errors")
			return
		}
		log.Info("BLE device disconnected successfully")
	})
}

// withLink runs fn holding the link lock of a connected device.
func (p *Platform) withLink(deviceID string, fn func(l *link) error) error {
	p.mu.Lock()
	l, ok := p.links[deviceID]
	p.mu.Unlock()
	if !ok {
		return platform.ErrNotConnected
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client == nil {
		return platform.ErrNotConnected
	}
	return fn(l)
}

func (p *Platform) DiscoverServices(deviceID string, done func([]platform.Service, error)) {
	p.run("ble-discover-services", func() {
		var out []platform.Service
		err := p.withLink(deviceID, func(l *link) error {
			services, err := l.client.DiscoverServices(nil)
			if err != nil {
				return NormalizeError(err)
			}
			for _, svc := range services {
				id := platform.NormalizeUUID(svc.UUID.String())
				l.services[id] = svc
				out = append(out, platform.Service{UUID: id, IsPrimary: true})
			}
			return nil
		})
		done(out, err)
	})
}

func (p *Platform) DiscoverCharacteristics(deviceID, serviceID string, done func([]platform.Characteristic, error)) {
	p.run("ble-discover-characteristics", func() {
		var out []platform.Characteristic
		err := p.withLink(deviceID, func(l *link) error {
			svcID := platform.NormalizeUUID(serviceID)
			svc, ok := l.services[svcID]
			if !ok {
				return platform.ErrUnknownService
			}

			chars, err := l.client.DiscoverCharacteristics(nil, svc)
			if err != nil {
				return NormalizeError(err)
			}
			for _, c := range chars {
				// CCCD lookup for subscriptions; best effort
				if _, err := l.client.DiscoverDescriptors(nil, c); err != nil {
					p.logger.WithFields(logrus.Fields{
						"service_uuid": svcID,
						"char_uuid":    c.UUID.String(),
						"error":        err,
					}).Debug("Failed to discover descriptors")
				}
				id := platform.NormalizeUUID(c.UUID.String())
				l.chars[svcID+"/"+id] = c
				out = append(out, platform.Characteristic{UUID: id, ServiceUUID: svcID, Properties: propertiesOf(c.Property)})
			}
			return nil
		})
		done(out, err)
	})
}

func (p *Platform) characteristic(l *link, serviceID, charID string) (*ble.Characteristic, error) {
	c, ok := l.chars[charKey(serviceID, charID)]
	if !ok {
		return nil, platform.ErrUnknownChar
	}
	return c, nil
}

// ReadCharacteristic reads a value. The value is delivered through
// OnCharacteristicValueChange after done reports success.
func (p *Platform) ReadCharacteristic(deviceID, serviceID, charID string, done func(error)) {
	p.run("ble-read", func() {
		var value []byte
		err := p.withLink(deviceID, func(l *link) error {
			c, err := p.characteristic(l, serviceID, charID)
			if err != nil {
				return err
			}
			value, err = l.client.ReadCharacteristic(c)
			return NormalizeError(err)
		})
		done(err)
		if err != nil {
			return
		}
		p.valueChanged.Emit(platform.ValueChange{
			DeviceID:         deviceID,
			ServiceID:        platform.NormalizeUUID(serviceID),
			CharacteristicID: platform.NormalizeUUID(charID),
			Value:            value,
		})
	})
}

func (p *Platform) WriteCharacteristic(deviceID, serviceID, charID string, value []byte, done func(error)) {
	payload := append([]byte(nil), value...)
	p.run("ble-write", func() {
		done(p.withLink(deviceID, func(l *link) error {
			c, err := p.characteristic(l, serviceID, charID)
			if err != nil {
				return err
			}
			return NormalizeError(l.client.WriteCharacteristic(c, payload, writeWithoutResponse(c.Property)))
		}))
	})
}

func (p *Platform) SetNotifyState(deviceID, serviceID, charID string, enable bool, done func(error)) {
	svcID, id := platform.NormalizeUUID(serviceID), platform.NormalizeUUID(charID)
	p.run("ble-notify", func() {
		done(p.withLink(deviceID, func(l *link) error {
			c, err := p.characteristic(l, serviceID, charID)
			if err != nil {
				return err
			}
			ind := useIndication(c.Property)
			if !enable {
				return NormalizeError(l.client.Unsubscribe(c, ind))
			}
			return NormalizeError(l.client.Subscribe(c, ind, func(data []byte) {
				p.valueChanged.Emit(platform.ValueChange{
					DeviceID:         deviceID,
					ServiceID:        svcID,
					CharacteristicID: id,
					Value:            append([]byte(nil), data...),
				})
			}))
		}))
	})
}

func (p *Platform) OnCharacteristicValueChange(l func(platform.ValueChange)) func() {
	return p.valueChanged.Add(l)
}
