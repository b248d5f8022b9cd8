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

package config

import "fmt"

type Transports struct {
	Connect    []TransportConnect `toml:"connect,omitempty"`
	BaudRate   int                `toml:"baud_rate,omitempty"`
	AutoDetect bool               `toml:"auto_detect"`
}

type TransportConnect struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path,omitempty"`
}

func (t TransportConnect) ConnectionString() string {
	return fmt.Sprintf("%s:%s", t.Driver, t.Path)
}

// BaudRate returns the serial bit rate, falling back to the default when
// unset or invalid.
func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Transports.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.vals.Transports.BaudRate
}

func (c *Instance) SetBaudRate(rate int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Transports.BaudRate = rate
}

func (c *Instance) AutoDetect() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Transports.AutoDetect
}

func (c *Instance) SetAutoDetect(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Transports.AutoDetect = enabled
}

func (c *Instance) TransportConnections() []TransportConnect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TransportConnect, len(c.vals.Transports.Connect))
	copy(out, c.vals.Transports.Connect)
	return out
}

func (c *Instance) SetTransportConnections(tcs []TransportConnect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Transports.Connect = tcs
}
