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

// Package interpreter turns a stream of device lines into decoded text.
//
// A Session owns the building pattern and the decoded transcript for one
// communication session. Lines must be fed from a single goroutine so they
// are applied strictly in arrival order; snapshots, manual entry and clear
// are safe to call from elsewhere.
package interpreter

import (
	"strings"
	"unicode/utf8"

	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/blinktalk/blinktalk-core/pkg/morse"
	"github.com/rs/zerolog/log"
)

const (
	// EmptyBuilding is shown when no pattern is being built.
	EmptyBuilding = "—"
	// AutoSaveInterval is the transcript length step that triggers an
	// auto-save.
	AutoSaveInterval = 10
)

// State is a copy of the decoder state at a point in time.
type State struct {
	CurrentBuilding string `json:"currentBuilding"`
	DecodedText     string `json:"decodedText"`
}

// DisplayUpdate is sent after every change to the decoder state.
type DisplayUpdate struct {
	Building    string `json:"building"`
	Display     string `json:"display"`
	DecodedText string `json:"decodedText"`
}

type (
	DisplayFunc func(DisplayUpdate)
	SaveFunc    func(text string)
)

// Settings is the read-only view of configuration the decoder needs.
type Settings interface {
	AutoSave() bool
}

type Callbacks struct {
	Display  DisplayFunc
	AutoSave SaveFunc
}

type Session struct {
	settings Settings
	cb       Callbacks
	state    State
	// transcript length at the last auto-save, so each multiple of
	// AutoSaveInterval saves once
	savedLen int
	mu       syncutil.Mutex
	// held from a state change until its callbacks return, so updates are
	// delivered in the order they were made
	emitMu syncutil.Mutex
	// set when CurrentBuilding was already decoded and is only kept so the
	// display shows it; a later break must not decode it again
	displayOnly bool
}

func NewSession(settings Settings, cb Callbacks) *Session {
	return &Session{
		settings: settings,
		cb:       cb,
	}
}

// ProcessLine applies a single line to the session and returns how it was
// classified. Malformed input never fails, it only changes less state.
func (s *Session) ProcessLine(line string) LineEvent {
	ev := Classify(line)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	switch ev.Kind {
	case WordBreak:
		s.finalizeBuilding()
		s.state.DecodedText += " "
	case LetterBreak:
		s.finalizeBuilding()
	case CompleteToken:
		s.appendDecoded(morse.Decode(ev.Pattern))
		s.state.CurrentBuilding = ev.Raw
		s.displayOnly = true
	case PartialPattern:
		s.setBuilding(ev.Raw)
	case TaggedPayload:
		if ev.Pattern != "" {
			s.setBuilding(ev.Pattern)
		}
	case Unrecognized:
		if ev.Pattern != "" {
			s.setBuilding(ev.Pattern)
		} else {
			log.Debug().Str("line", ev.Raw).Msg("ignoring unrecognized line")
		}
	}
	update := s.displayUpdate()
	saveText, save := s.checkAutoSave()
	s.mu.Unlock()

	log.Trace().
		Str("kind", ev.Kind.String()).
		Str("line", ev.Raw).
		Str("building", update.Building).
		Msg("processed line")

	s.emit(update, saveText, save)
	return ev
}

// ManualEntry decodes whitespace separated patterns typed by the user and
// appends them straight to the transcript. Each token is complete on its
// own, so the building pattern is left alone. Returns the appended text.
func (s *Session) ManualEntry(input string) string {
	var sb strings.Builder
	for _, token := range strings.Fields(morse.CleanDisplay(input)) {
		if !morse.IsValidMorse(token) {
			log.Debug().Str("token", token).Msg("skipping invalid manual token")
			continue
		}
		sb.WriteString(morse.Decode(token))
	}
	text := sb.String()

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.state.DecodedText += text
	update := s.displayUpdate()
	saveText, save := s.checkAutoSave()
	s.mu.Unlock()

	s.emit(update, saveText, save)
	return text
}

// Clear resets the building pattern and the transcript.
func (s *Session) Clear() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.state = State{}
	s.displayOnly = false
	s.savedLen = 0
	update := s.displayUpdate()
	s.mu.Unlock()

	s.emit(update, "", false)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Display returns what the display currently shows.
func (s *Session) Display() DisplayUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayUpdate()
}

// setBuilding replaces the pending pattern. Caller must hold mu.
func (s *Session) setBuilding(pattern string) {
	s.state.CurrentBuilding = pattern
	s.displayOnly = false
}

// finalizeBuilding decodes the pending pattern into the transcript and
// clears it. Caller must hold mu.
func (s *Session) finalizeBuilding() {
	if s.state.CurrentBuilding != "" && !s.displayOnly {
		s.appendDecoded(morse.Decode(s.state.CurrentBuilding))
	}
	s.state.CurrentBuilding = ""
	s.displayOnly = false
}

// appendDecoded adds decoded text unless it is empty or the unknown marker.
// Caller must hold mu.
func (s *Session) appendDecoded(decoded string) {
	if decoded == "" || decoded == morse.Unknown {
		return
	}
	s.state.DecodedText += decoded
}

// Caller must hold mu.
func (s *Session) displayUpdate() DisplayUpdate {
	if s.state.CurrentBuilding == "" {
		return DisplayUpdate{
			Building:    EmptyBuilding,
			Display:     EmptyBuilding,
			DecodedText: s.state.DecodedText,
		}
	}
	return DisplayUpdate{
		Building:    s.state.CurrentBuilding,
		Display:     morse.FormatForDisplay(s.state.CurrentBuilding),
		DecodedText: s.state.DecodedText,
	}
}

// Caller must hold mu.
func (s *Session) checkAutoSave() (string, bool) {
	if s.settings == nil || !s.settings.AutoSave() {
		return "", false
	}

	n := utf8.RuneCountInString(s.state.DecodedText)
	if n == 0 || n%AutoSaveInterval != 0 || n == s.savedLen {
		return "", false
	}

	s.savedLen = n
	return s.state.DecodedText, true
}

// Caller must hold emitMu. Callbacks must not feed the session again.
func (s *Session) emit(update DisplayUpdate, saveText string, save bool) {
	if s.cb.Display != nil {
		s.cb.Display(update)
	}
	if save && s.cb.AutoSave != nil {
		log.Debug().Int("length", utf8.RuneCountInString(saveText)).Msg("auto-saving transcript")
		s.cb.AutoSave(saveText)
	}
}
