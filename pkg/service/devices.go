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
	"context"
	"fmt"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers"
	"github.com/blinktalk/blinktalk-core/pkg/transports/bluetooth"
	"github.com/blinktalk/blinktalk-core/pkg/transports/serial"
	"github.com/rs/zerolog/log"
)

// Listers used by Devices, swapped in tests.
var (
	listSerial    = helpers.ListSerialDevices
	listBluetooth = func(ctx context.Context, cfg *config.Instance) ([]bluetooth.DeviceInfo, error) {
		return bluetooth.NewTransport(cfg).Devices(ctx)
	}
)

// Devices lists serial ports and known Bluetooth devices. A failing source
// is logged and skipped.
func (s *Session) Devices(ctx context.Context) []models.DeviceEntry {
	var out []models.DeviceEntry

	ports, err := listSerial()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list serial devices")
	}
	for _, p := range ports {
		conn := config.TransportConnect{Driver: serial.DriverID, Path: p.Path}
		desc := p.Product
		if vendor := helpers.VendorName(p.VID); vendor != "" {
			desc = vendor
			if p.Product != "" {
				desc = fmt.Sprintf("%s (%s)", vendor, p.Product)
			}
		}
		out = append(out, models.DeviceEntry{
			Driver:      serial.DriverID,
			Path:        p.Path,
			Description: desc,
			Connection:  conn.ConnectionString(),
			Supported:   p.Known,
		})
	}

	devices, err := listBluetooth(ctx, s.cfg)
	if err != nil {
		log.Debug().Err(err).Msg("failed to list bluetooth devices")
	}
	for _, d := range devices {
		conn := config.TransportConnect{Driver: bluetooth.DriverID, Path: d.Address}
		out = append(out, models.DeviceEntry{
			Driver:     bluetooth.DriverID,
			Path:       d.Address,
			Name:       d.Name,
			Connection: conn.ConnectionString(),
			Supported:  d.Supported(bluetooth.DefaultProfiles),
		})
	}

	return out
}
