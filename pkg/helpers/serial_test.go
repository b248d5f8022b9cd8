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
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func portName(suffix string) string {
	switch runtime.GOOS {
	case "darwin":
		return "/dev/tty.usbmodem" + suffix
	case "windows":
		return "COM" + suffix
	default:
		return "/dev/ttyACM" + suffix
	}
}

//nolint:paralleltest // swaps package-level portsLister
func TestListSerialDevices_KnownVendorsFirst(t *testing.T) {
	orig := portsLister
	t.Cleanup(func() { portsLister = orig })

	portsLister = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: portName("0"), IsUSB: true, VID: "DEAD", PID: "BEEF"},
			nil,
			{Name: portName("1"), IsUSB: true, VID: "2341", PID: "0043", Product: "Uno"},
		}, nil
	}

	devices, err := ListSerialDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, portName("1"), devices[0].Path)
	assert.True(t, devices[0].Known)
	assert.Equal(t, "2341", devices[0].VID)
	assert.Equal(t, "Uno", devices[0].Product)

	assert.Equal(t, portName("0"), devices[1].Path)
	assert.False(t, devices[1].Known)
	assert.Equal(t, "dead", devices[1].VID, "ids are lowercased")
}

//nolint:paralleltest // swaps package-level portsLister
func TestGetSerialDeviceList_Paths(t *testing.T) {
	orig := portsLister
	t.Cleanup(func() { portsLister = orig })

	portsLister = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: portName("3"), VID: "1a86"},
			{Name: portName("2")},
		}, nil
	}

	paths, err := GetSerialDeviceList()
	require.NoError(t, err)
	assert.Equal(t, []string{portName("3"), portName("2")}, paths)
}

func TestVendorName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Espressif", VendorName("303A"))
	assert.Empty(t, VendorName("ffff"))
}
