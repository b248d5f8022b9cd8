// Blinktalk Core
// Copyright (c) 2026 The Blinktalk Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Blinktalk Core.
//
// Blinktalk Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Blinktalk Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Blinktalk Core.  If not, see <http://www.gnu.org/licenses/>.

package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/blinktalk/blinktalk-core/pkg/transports/bluetooth"
	"github.com/blinktalk/blinktalk-core/pkg/transports/mqtt"
	"github.com/blinktalk/blinktalk-core/pkg/transports/serial"
)

var (
	ErrUnknownDriver           = errors.New("unknown transport driver")
	ErrInvalidConnectionString = errors.New("invalid connection string")
)

// DriverFactory creates a fresh, unopened transport.
type DriverFactory func(cfg *config.Instance) transports.Transport

// DefaultDrivers returns every built-in transport in auto-detect priority
// order.
func DefaultDrivers() []DriverFactory {
	return []DriverFactory{
		func(cfg *config.Instance) transports.Transport { return serial.NewTransport(cfg) },
		func(cfg *config.Instance) transports.Transport { return bluetooth.NewTransport(cfg) },
		func(cfg *config.Instance) transports.Transport { return mqtt.NewTransport(cfg) },
	}
}

// ParseConnectionString splits "driver:path". The driver is lower cased and
// the path kept verbatim, so MQTT URLs with their own colons survive.
func ParseConnectionString(s string) (config.TransportConnect, error) {
	driver, path, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || driver == "" {
		return config.TransportConnect{}, fmt.Errorf("%w: %q", ErrInvalidConnectionString, s)
	}
	return config.TransportConnect{
		Driver: strings.ToLower(driver),
		Path:   path,
	}, nil
}

func newTransport(cfg *config.Instance, drivers []DriverFactory, id string) (transports.Transport, error) {
	id = strings.ToLower(id)
	for _, factory := range drivers {
		t := factory(cfg)
		if slices.Contains(t.IDs(), id) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, id)
}

func driverIDs(cfg *config.Instance, drivers []DriverFactory) []string {
	var ids []string
	for _, factory := range drivers {
		ids = append(ids, factory(cfg).IDs()...)
	}
	return ids
}
