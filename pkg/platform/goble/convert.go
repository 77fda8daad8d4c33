package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/blesession/pkg/platform"
)

// deviceFromAdvertisement converts one advertisement report.
func deviceFromAdvertisement(adv ble.Advertisement) platform.Device {
	d := platform.Device{
		ID:           adv.Addr().String(),
		LocalName:    adv.LocalName(),
		RSSI:         adv.RSSI(),
		AdvertisData: adv.ManufacturerData(),
	}

	for _, u := range adv.Services() {
		d.AdvertisServiceUUIDs = append(d.AdvertisServiceUUIDs, platform.NormalizeUUID(u.String()))
	}

	if sd := adv.ServiceData(); len(sd) > 0 {
		d.ServiceData = make(map[string][]byte, len(sd))
		for _, entry := range sd {
			d.ServiceData[platform.NormalizeUUID(entry.UUID.String())] = entry.Data
		}
	}
	return d
}

// advertises reports whether d lists at least one of the normalized services. An empty
// filter matches everything.
func advertises(d platform.Device, services []string) bool {
	if len(services) == 0 {
		return true
	}
	for _, want := range services {
		for _, got := range d.AdvertisServiceUUIDs {
			if got == want {
				return true
			}
		}
		if _, ok := d.ServiceData[want]; ok {
			return true
		}
	}
	return false
}

func propertiesOf(p ble.Property) platform.Properties {
	return platform.Properties{
		Read:            p&ble.CharRead != 0,
		Write:           p&ble.CharWrite != 0,
		WriteNoResponse: p&ble.CharWriteNR != 0,
		Notify:          p&ble.CharNotify != 0,
		Indicate:        p&ble.CharIndicate != 0,
	}
}

// useIndication picks indications only when notifications are unavailable.
func useIndication(p ble.Property) bool {
	return p&ble.CharNotify == 0 && p&ble.CharIndicate != 0
}

// writeWithoutResponse picks write-without-response only when acknowledged writes are
// unavailable.
func writeWithoutResponse(p ble.Property) bool {
	return p&ble.CharWrite == 0 && p&ble.CharWriteNR != 0
}
