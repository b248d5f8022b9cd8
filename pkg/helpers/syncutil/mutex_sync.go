//go:build !deadlock

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

// Package syncutil wraps the sync mutexes so a deadlock detecting build can
// be swapped in with -tags=deadlock.
package syncutil

import "sync"

// DeadlockEnabled reports whether this build uses the deadlock detector.
const DeadlockEnabled = false

//nolint:gocritic // embedding is the point of this wrapper
type Mutex struct {
	sync.Mutex //nolint:forbidigo // wrapped here only
}

//nolint:gocritic // embedding is the point of this wrapper
type RWMutex struct {
	sync.RWMutex //nolint:forbidigo // wrapped here only
}
