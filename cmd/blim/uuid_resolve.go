package main

import (
	"fmt"
	"strings"

	"github.com/srg/blesession/pkg/platform"
	"github.com/srg/blesession/pkg/session"
)

// resolveTarget finds the characteristic charUUID on the connected device.
//
// Resolution cases:
//  1. Explicit service: direct lookup in that service
//  2. Auto-resolve: search all enumerated services; the UUID must be unique
func resolveTarget(s *session.Session, serviceUUID, charUUID string) (platform.Characteristic, error) {
	want := platform.NormalizeUUID(charUUID)

	if serviceUUID != "" {
		for _, c := range s.Characteristics(serviceUUID) {
			if platform.NormalizeUUID(c.UUID) == want {
				return c, nil
			}
		}
		return platform.Characteristic{}, fmt.Errorf("characteristic %s not found in service %s: %w",
			charUUID, serviceUUID, platform.ErrUnknownChar)
	}

	var found []platform.Characteristic
	for _, svc := range s.Services() {
		for _, c := range s.Characteristics(svc.UUID) {
			if platform.NormalizeUUID(c.UUID) == want {
				if c.ServiceUUID == "" {
					c.ServiceUUID = svc.UUID
				}
				found = append(found, c)
			}
		}
	}

	switch len(found) {
	case 0:
		return platform.Characteristic{}, fmt.Errorf("characteristic %s not found: %w", charUUID, platform.ErrUnknownChar)
	case 1:
		return found[0], nil
	default:
		services := make([]string, len(found))
		for i, c := range found {
			services[i] = c.ServiceUUID
		}
		return platform.Characteristic{}, fmt.Errorf("characteristic %s found in multiple services (%s); pass the service explicitly",
			charUUID, strings.Join(services, ", "))
	}
}

// parseCSVUUIDs splits a comma separated UUID list and validates each entry.
func parseCSVUUIDs(csv string) ([]string, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var parts []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return platform.ValidateUUID(parts...)
}
