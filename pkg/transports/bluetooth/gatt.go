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

package bluetooth

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService        = "org.bluez"
	bluezAdapter        = "org.bluez.Adapter1"
	bluezDevice         = "org.bluez.Device1"
	bluezGattService    = "org.bluez.GattService1"
	bluezGattChar       = "org.bluez.GattCharacteristic1"
	dbusObjectManager   = "org.freedesktop.DBus.ObjectManager"
	dbusProperties      = "org.freedesktop.DBus.Properties"
	defaultAdapterPath  = dbus.ObjectPath("/org/bluez/hci0")
	propertiesChangedFn = dbusProperties + ".PropertiesChanged"
)

// managedObjects is the reply shape of ObjectManager.GetManagedObjects.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

var macRe = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:_-]){5}[0-9A-Fa-f]{2}$`)

// gattTarget is the resolved pair of characteristic objects for a profile.
type gattTarget struct {
	profile    Profile
	notifyPath dbus.ObjectPath
	writePath  dbus.ObjectPath
}

// firstAdapter returns the lowest adapter path, or hci0 when none is listed.
func firstAdapter(objects managedObjects) dbus.ObjectPath {
	var adapters []string
	for path, ifaces := range objects {
		if _, ok := ifaces[bluezAdapter]; ok {
			adapters = append(adapters, string(path))
		}
	}
	if len(adapters) == 0 {
		return defaultAdapterPath
	}
	sort.Strings(adapters)
	return dbus.ObjectPath(adapters[0])
}

// devicePathFor maps a MAC address or an object path to the BlueZ device
// object path.
func devicePathFor(adapter dbus.ObjectPath, address string) (dbus.ObjectPath, error) {
	if strings.HasPrefix(address, "/") {
		p := dbus.ObjectPath(address)
		if !p.IsValid() {
			return "", fmt.Errorf("invalid bluetooth object path: %s", address)
		}
		return p, nil
	}
	if !macRe.MatchString(address) {
		return "", fmt.Errorf("invalid bluetooth address: %s", address)
	}
	mac := strings.ToUpper(strings.NewReplacer(":", "_", "-", "_").Replace(address))
	return dbus.ObjectPath(string(adapter) + "/dev_" + mac), nil
}

func variantString(props map[string]dbus.Variant, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func variantBool(props map[string]dbus.Variant, key string) bool {
	if v, ok := props[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

func childOf(path, parent dbus.ObjectPath) bool {
	return strings.HasPrefix(string(path), string(parent)+"/")
}

// selectProfile finds the first profile whose service and characteristics
// all exist under the device.
func selectProfile(objects managedObjects, device dbus.ObjectPath, profiles []Profile) (gattTarget, error) {
	for _, p := range profiles {
		for svcPath, ifaces := range objects {
			svc, ok := ifaces[bluezGattService]
			if !ok || !childOf(svcPath, device) {
				continue
			}
			if !strings.EqualFold(variantString(svc, "UUID"), p.Service) {
				continue
			}

			target := gattTarget{profile: p}
			for charPath, charIfaces := range objects {
				char, ok := charIfaces[bluezGattChar]
				if !ok || !childOf(charPath, svcPath) {
					continue
				}
				uuid := variantString(char, "UUID")
				if strings.EqualFold(uuid, p.Notify) {
					target.notifyPath = charPath
				}
				if strings.EqualFold(uuid, p.Write) {
					target.writePath = charPath
				}
			}
			if target.notifyPath != "" && target.writePath != "" {
				return target, nil
			}
		}
	}
	return gattTarget{}, ErrCharacteristicNotFound
}

// listDevices extracts every BlueZ device from a managed objects reply,
// sorted by address.
func listDevices(objects managedObjects) []DeviceInfo {
	var devices []DeviceInfo
	for _, ifaces := range objects {
		props, ok := ifaces[bluezDevice]
		if !ok {
			continue
		}
		d := DeviceInfo{
			Address:   variantString(props, "Address"),
			Name:      variantString(props, "Name"),
			Connected: variantBool(props, "Connected"),
			Paired:    variantBool(props, "Paired"),
		}
		if d.Name == "" {
			d.Name = variantString(props, "Alias")
		}
		if v, ok := props["UUIDs"]; ok {
			if uuids, ok := v.Value().([]string); ok {
				d.UUIDs = uuids
			}
		}
		if v, ok := props["RSSI"]; ok {
			if rssi, ok := v.Value().(int16); ok {
				d.RSSI = rssi
			}
		}
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Address < devices[j].Address
	})
	return devices
}

// notificationValue extracts the characteristic value from a
// PropertiesChanged signal body.
func notificationValue(sig *dbus.Signal) ([]byte, bool) {
	if sig == nil || sig.Name != propertiesChangedFn || len(sig.Body) < 2 {
		return nil, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != bluezGattChar {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, false
	}
	v, ok := changed["Value"]
	if !ok {
		return nil, false
	}
	value, ok := v.Value().([]byte)
	return value, ok
}

// deviceDisconnected returns true if the signal reports Connected=false on
// the device interface.
func deviceDisconnected(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != propertiesChangedFn || len(sig.Body) < 2 {
		return false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != bluezDevice {
		return false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false
	}
	v, ok := changed["Connected"]
	if !ok {
		return false
	}
	connected, ok := v.Value().(bool)
	return ok && !connected
}
