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

package helpers

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialDevice is a candidate serial port for a blink detector.
type SerialDevice struct {
	Path    string `json:"path"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Product string `json:"product,omitempty"`
	Known   bool   `json:"known"`
}

// USB vendor IDs of the microcontroller boards and USB-UART bridges the
// detector firmware ships on.
var knownVendors = map[string]string{
	"2341": "Arduino",
	"2a03": "Arduino",
	"1a86": "WCH CH340",
	"0403": "FTDI",
	"10c4": "Silicon Labs CP210x",
	"303a": "Espressif",
	"239a": "Adafruit",
	"2e8a": "Raspberry Pi",
}

var portsLister = enumerator.GetDetailedPortsList

func isCandidatePort(name string) bool {
	switch runtime.GOOS {
	case "linux":
		return strings.HasPrefix(name, "/dev/ttyUSB") || strings.HasPrefix(name, "/dev/ttyACM")
	case "darwin":
		return strings.HasPrefix(name, "/dev/tty.usbserial") ||
			strings.HasPrefix(name, "/dev/tty.usbmodem") ||
			strings.HasPrefix(name, "/dev/cu.usbserial") ||
			strings.HasPrefix(name, "/dev/cu.usbmodem")
	case "windows":
		return strings.HasPrefix(name, "COM")
	default:
		return true
	}
}

// ListSerialDevices returns USB serial ports, boards with a known vendor
// first.
func ListSerialDevices() ([]SerialDevice, error) {
	ports, err := portsLister()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	devices := make([]SerialDevice, 0, len(ports))
	for _, p := range ports {
		if p == nil || !isCandidatePort(p.Name) {
			continue
		}
		vid := strings.ToLower(p.VID)
		_, known := knownVendors[vid]
		devices = append(devices, SerialDevice{
			Path:    p.Name,
			VID:     vid,
			PID:     strings.ToLower(p.PID),
			Product: p.Product,
			Known:   known,
		})
	}

	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Known != devices[j].Known {
			return devices[i].Known
		}
		return devices[i].Path < devices[j].Path
	})

	return devices, nil
}

// GetSerialDeviceList returns candidate port paths. When detailed
// enumeration fails it falls back to the plain port list.
func GetSerialDeviceList() ([]string, error) {
	devices, err := ListSerialDevices()
	if err == nil {
		paths := make([]string, 0, len(devices))
		for _, d := range devices {
			paths = append(paths, d.Path)
		}
		return paths, nil
	}
	log.Debug().Err(err).Msg("detailed port enumeration failed, using plain list")

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}

	paths := make([]string, 0, len(ports))
	for _, p := range ports {
		if isCandidatePort(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// VendorName returns the board family for a USB vendor ID, if known.
func VendorName(vid string) string {
	return knownVendors[strings.ToLower(vid)]
}
