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
	"slices"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const detectLogInterval = 30 * time.Second

// AutoDetector finds devices for drivers that allow auto-detection and
// remembers connection strings that failed to open, so a broken device is
// not retried on every pass.
type AutoDetector struct {
	clock       clockwork.Clock
	lastLogTime time.Time
	failed      map[string]bool
	lastSummary int
	mu          syncutil.RWMutex
}

func NewAutoDetector(clock clockwork.Clock) *AutoDetector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AutoDetector{
		clock:       clock,
		failed:      make(map[string]bool),
		lastSummary: -1,
	}
}

// Candidates asks every auto-detect driver for a device and returns the
// results in driver order. Previously failed connections are excluded.
func (ad *AutoDetector) Candidates(cfg *config.Instance, drivers []DriverFactory) []config.TransportConnect {
	exclude := ad.Failed()

	var out []config.TransportConnect
	for _, factory := range drivers {
		t := factory(cfg)
		if !t.Metadata().DefaultAutoDetect {
			continue
		}

		detect := t.Detect(exclude)
		if detect == "" {
			continue
		}

		conn, err := ParseConnectionString(detect)
		if err != nil {
			log.Error().Err(err).Msg("invalid auto-detect result")
			continue
		}
		if !slices.Contains(t.IDs(), conn.Driver) {
			log.Error().Str("device", detect).Msg("auto-detect returned a foreign driver")
			continue
		}
		out = append(out, conn)
	}

	ad.logResults(len(out))
	return out
}

// logResults logs when the number of candidates changes, plus a periodic
// heartbeat at trace level.
func (ad *AutoDetector) logResults(found int) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := ad.clock.Now()
	heartbeat := ad.lastLogTime.IsZero() || now.Sub(ad.lastLogTime) > detectLogInterval
	if found == ad.lastSummary && !heartbeat {
		return
	}

	if found > 0 {
		log.Debug().Int("found", found).Int("failed", len(ad.failed)).Msg("auto-detect found devices")
	} else {
		log.Trace().Int("failed", len(ad.failed)).Msg("auto-detect found no devices")
	}
	ad.lastSummary = found
	ad.lastLogTime = now
}

func (ad *AutoDetector) MarkFailed(connectionString string) {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	ad.failed[connectionString] = true
}

func (ad *AutoDetector) ClearFailed(connectionString string) {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	delete(ad.failed, connectionString)
}

// Failed returns the failed connection strings, sorted.
func (ad *AutoDetector) Failed() []string {
	ad.mu.RLock()
	defer ad.mu.RUnlock()

	out := make([]string, 0, len(ad.failed))
	for cs := range ad.failed {
		out = append(out, cs)
	}
	slices.Sort(out)
	return out
}
