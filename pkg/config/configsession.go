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

const DefaultTargetLanguage = "en"

type Session struct {
	TargetLanguage string `toml:"target_language,omitempty"`
	AutoSave       bool   `toml:"auto_save"`
	AutoConnect    bool   `toml:"auto_connect"`
}

// AutoSave reports whether the transcript is saved automatically every few
// characters.
func (c *Instance) AutoSave() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Session.AutoSave
}

func (c *Instance) SetAutoSave(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Session.AutoSave = enabled
}

// AutoConnect reports whether configured transports are connected when the
// service starts.
func (c *Instance) AutoConnect() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Session.AutoConnect
}

func (c *Instance) SetAutoConnect(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Session.AutoConnect = enabled
}

func (c *Instance) TargetLanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Session.TargetLanguage == "" {
		return DefaultTargetLanguage
	}
	return c.vals.Session.TargetLanguage
}

func (c *Instance) SetTargetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Session.TargetLanguage = lang
}
