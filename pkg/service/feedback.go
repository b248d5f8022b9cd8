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
	"encoding/json"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/audio"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/rs/zerolog/log"
)

// Feedback turns session notifications into sound: a sidetone for each
// received element and a cue after saves and failures. Settings are read
// per notification so a config reload applies straight away.
type Feedback struct {
	cfg      *config.Instance
	player   audio.Player
	dataDir  string
	building string
}

func NewFeedback(cfg *config.Instance, player audio.Player, dataDir string) *Feedback {
	return &Feedback{cfg: cfg, player: player, dataDir: dataDir}
}

// Run consumes notifications until ctx is done or the channel closes.
func (f *Feedback) Run(ctx context.Context, ns <-chan models.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ns:
			if !ok {
				return nil
			}
			f.handle(n)
		}
	}
}

func (f *Feedback) tone() audio.Tone {
	return audio.Tone{
		Frequency: float64(f.cfg.SidetoneFrequency()),
		WPM:       f.cfg.SidetoneWPM(),
	}
}

func (f *Feedback) handle(n models.Notification) {
	switch n.Method {
	case models.NotificationDisplayUpdated:
		var u interpreter.DisplayUpdate
		if err := json.Unmarshal(n.Params, &u); err != nil {
			log.Debug().Err(err).Msg("feedback: bad display update")
			return
		}
		added := newElements(f.building, u.Building)
		f.building = u.Building
		if added == "" || !f.cfg.Sidetone() {
			return
		}
		if err := f.player.PlayMorse(added, f.tone()); err != nil {
			log.Debug().Err(err).Str("pattern", added).Msg("feedback: sidetone failed")
		}
	case models.NotificationSessionCleared:
		f.building = ""
	case models.NotificationMessagesSaved:
		f.cue(f.cfg.SaveSoundPath, audio.SaveCue)
	case models.NotificationMessagesSaveFailed, models.NotificationTransportError:
		f.cue(f.cfg.FailSoundPath, audio.FailCue)
	case models.NotificationSettingsReloaded:
		f.player.ClearFileCache()
	}
}

// cue plays the configured file, or the built-in morse cue when none is
// set.
func (f *Feedback) cue(lookup func(string) (string, bool), builtin string) {
	if !f.cfg.AudioFeedback() {
		return
	}
	path, enabled := lookup(f.dataDir)
	if !enabled {
		return
	}
	if path == "" {
		if err := f.player.PlayMorse(builtin, f.tone()); err != nil {
			log.Warn().Err(err).Msg("error playing feedback cue")
		}
		return
	}
	if err := f.player.PlayFile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("error playing custom feedback sound")
	}
}

// newElements returns the dots and dashes in cur that weren't in prev. A
// pattern that doesn't extend prev is a new letter and sounds in full.
func newElements(prev, cur string) string {
	if cur == interpreter.EmptyBuilding {
		return ""
	}
	if prev != interpreter.EmptyBuilding && strings.HasPrefix(cur, prev) {
		cur = cur[len(prev):]
	}
	var sb strings.Builder
	for _, r := range cur {
		switch r {
		case '.', '•':
			sb.WriteByte('.')
		case '-', '—':
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
