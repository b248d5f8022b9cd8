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

import "path/filepath"

const (
	DefaultSidetoneFrequency = 600
	DefaultSidetoneWPM       = 20
	SoundsDir                = "sounds"
)

type Audio struct {
	SaveSound *string `toml:"save_sound,omitempty"`
	FailSound *string `toml:"fail_sound,omitempty"`
	Frequency int     `toml:"frequency,omitempty"`
	WPM       int     `toml:"wpm,omitempty"`
	Sidetone  bool    `toml:"sidetone"`
	Feedback  bool    `toml:"feedback"`
}

// Sidetone reports whether each received dot and dash is echoed as a tone.
func (c *Instance) Sidetone() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Audio.Sidetone
}

func (c *Instance) SetSidetone(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Audio.Sidetone = enabled
}

// AudioFeedback reports whether saves and failures play a cue.
func (c *Instance) AudioFeedback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Audio.Feedback
}

func (c *Instance) SetAudioFeedback(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Audio.Feedback = enabled
}

func (c *Instance) SidetoneFrequency() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Audio.Frequency <= 0 {
		return DefaultSidetoneFrequency
	}
	return c.vals.Audio.Frequency
}

func (c *Instance) SidetoneWPM() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Audio.WPM <= 0 {
		return DefaultSidetoneWPM
	}
	return c.vals.Audio.WPM
}

// SaveSoundPath returns the sound played after a save and whether it is
// enabled. An unset value means the built-in cue, an empty string disables
// it, and a relative path is resolved against dataDir/sounds.
func (c *Instance) SaveSoundPath(dataDir string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return soundPath(c.vals.Audio.SaveSound, dataDir)
}

// FailSoundPath is SaveSoundPath for failed saves and transport errors.
func (c *Instance) FailSoundPath(dataDir string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return soundPath(c.vals.Audio.FailSound, dataDir)
}

func soundPath(v *string, dataDir string) (string, bool) {
	switch {
	case v == nil:
		return "", true
	case *v == "":
		return "", false
	case filepath.IsAbs(*v):
		return *v, true
	default:
		return filepath.Join(dataDir, SoundsDir, *v), true
	}
}
