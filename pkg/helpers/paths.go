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
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/blinktalk/blinktalk-core/pkg/config"
)

// PortableEnv overrides the executable path used to find a portable user
// directory.
const PortableEnv = "BLINKTALK_EXE"

// Dirs are the directories blinktalk reads and writes.
type Dirs struct {
	Config string
	Data   string
	Log    string
}

// DefaultDirs returns the XDG directories for the current user, or a single
// "user" directory next to the executable when one exists.
func DefaultDirs() Dirs {
	if dir, ok := UserDir(); ok {
		return Dirs{Config: dir, Data: dir, Log: dir}
	}
	return Dirs{
		Config: filepath.Join(xdg.ConfigHome, config.AppName),
		Data:   filepath.Join(xdg.DataHome, config.AppName),
		Log:    filepath.Join(xdg.StateHome, config.AppName),
	}
}

// UserDir returns the portable install directory, if present.
func UserDir() (string, bool) {
	exe := os.Getenv(PortableEnv)
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return "", false
		}
	}

	dir := filepath.Join(filepath.Dir(exe), "user")
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// EnsureDirs creates every directory in d.
func EnsureDirs(d Dirs) error {
	for _, dir := range []string{d.Config, d.Data, d.Log} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
