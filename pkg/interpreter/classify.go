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

package interpreter

import (
	"regexp"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/morse"
)

type EventKind int

const (
	Unrecognized EventKind = iota
	WordBreak
	LetterBreak
	CompleteToken
	PartialPattern
	TaggedPayload
)

func (k EventKind) String() string {
	switch k {
	case WordBreak:
		return "word_break"
	case LetterBreak:
		return "letter_break"
	case CompleteToken:
		return "complete_token"
	case PartialPattern:
		return "partial_pattern"
	case TaggedPayload:
		return "tagged_payload"
	default:
		return "unrecognized"
	}
}

// LineEvent is the classification of a single incoming line. Pattern holds
// the Morse content relevant to the kind and Raw the trimmed line.
type LineEvent struct {
	Pattern string
	Raw     string
	Kind    EventKind
}

var (
	wordBreakLines   = []string{"/", "SPACE", "WORD_END"}
	letterBreakLines = []string{"|", "LETTER", "LETTER_END"}
	payloadPrefixes  = []string{"BLINK:", "MORSE:"}
	embeddedRe       = regexp.MustCompile(`[.\-\s/]+`)
)

type rule struct {
	match func(line string) bool
	build func(line string) LineEvent
}

// rules are evaluated in order and the first match wins.
var rules = []rule{
	{
		match: func(line string) bool { return oneOf(line, wordBreakLines) },
		build: func(line string) LineEvent {
			return LineEvent{Kind: WordBreak, Raw: line}
		},
	},
	{
		match: func(line string) bool { return oneOf(line, letterBreakLines) },
		build: func(line string) LineEvent {
			return LineEvent{Kind: LetterBreak, Raw: line}
		},
	},
	{
		match: morse.IsValidMorse,
		build: func(line string) LineEvent {
			return LineEvent{Kind: CompleteToken, Pattern: line, Raw: line}
		},
	},
	{
		// unreachable while CompleteToken accepts every dot/dash string,
		// kept so the ordering stays explicit
		match: morse.IsToken,
		build: func(line string) LineEvent {
			return LineEvent{Kind: PartialPattern, Pattern: line, Raw: line}
		},
	},
	{
		match: hasPayloadPrefix,
		build: func(line string) LineEvent {
			_, payload, _ := strings.Cut(line, ":")
			return LineEvent{
				Kind:    TaggedPayload,
				Pattern: strings.TrimSpace(payload),
				Raw:     line,
			}
		},
	},
}

// Classify maps a line to its event. Lines are trimmed first. Lines that
// match no rule are Unrecognized, with Pattern set to the longest embedded
// Morse run when the line contains at least one dot or dash.
func Classify(line string) LineEvent {
	line = strings.TrimSpace(line)
	for _, r := range rules {
		if r.match(line) {
			return r.build(line)
		}
	}
	return LineEvent{
		Kind:    Unrecognized,
		Pattern: extractEmbedded(line),
		Raw:     line,
	}
}

func oneOf(line string, values []string) bool {
	for _, v := range values {
		if line == v {
			return true
		}
	}
	return false
}

func hasPayloadPrefix(line string) bool {
	for _, p := range payloadPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func extractEmbedded(line string) string {
	if !strings.ContainsAny(line, ".-") {
		return ""
	}

	longest := ""
	for _, run := range embeddedRe.FindAllString(line, -1) {
		run = strings.TrimSpace(run)
		if !strings.ContainsAny(run, ".-") {
			continue
		}
		if len(run) > len(longest) {
			longest = run
		}
	}
	return longest
}
