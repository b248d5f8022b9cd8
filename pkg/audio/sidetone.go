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

package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

var ErrInvalidPattern = errors.New("invalid morse pattern")

// Built-in cues, sent as morse: "R" (received) after a save, and the
// eight-dot error signal for failures.
const (
	SaveCue = ".-."
	FailCue = "........"
)

const (
	// rampDuration fades each tone in and out so elements don't click.
	rampDuration = 5 * time.Millisecond
	amplitude    = 0.3
)

type Tone struct {
	Frequency float64
	WPM       int
}

// Unit is the length of one dot using the PARIS timing standard.
func (t Tone) Unit() time.Duration {
	wpm := t.WPM
	if wpm <= 0 {
		wpm = 20
	}
	return 1200 * time.Millisecond / time.Duration(wpm)
}

// Element is one keyed (On) or silent stretch, measured in dot units.
type Element struct {
	Units int
	On    bool
}

// Elements converts a pattern into keyed and silent stretches. Dots and
// dashes may be ASCII or the display glyphs. A space ends a letter and a
// slash a word, so ".- / -" keeps standard letter and word gaps.
func Elements(pattern string) ([]Element, error) {
	var out []Element
	gap := func(units int) {
		if len(out) > 0 && !out[len(out)-1].On {
			out[len(out)-1].Units += units
			return
		}
		out = append(out, Element{Units: units})
	}

	for _, r := range pattern {
		switch r {
		case '.', '•':
			out = append(out, Element{Units: 1, On: true})
			gap(1)
		case '-', '—':
			out = append(out, Element{Units: 3, On: true})
			gap(1)
		case ' ':
			gap(2)
		case '/':
			gap(2)
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidPattern, r)
		}
	}

	// Trailing silence would only delay the next sound.
	if len(out) > 0 && !out[len(out)-1].On {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no dots or dashes", ErrInvalidPattern)
	}
	return out, nil
}

// MorseStreamer renders a pattern as a sine sidetone at SampleRate.
func MorseStreamer(pattern string, tone Tone) (beep.Streamer, error) {
	if tone.Frequency <= 0 || float64(SampleRate)/2 <= tone.Frequency {
		return nil, fmt.Errorf("sidetone frequency out of range: %v", tone.Frequency)
	}
	elems, err := Elements(pattern)
	if err != nil {
		return nil, err
	}

	unit := SampleRate.N(tone.Unit())
	parts := make([]beep.Streamer, 0, len(elems))
	for _, e := range elems {
		if e.On {
			parts = append(parts, sine(tone.Frequency, e.Units*unit))
		} else {
			parts = append(parts, beep.Silence(e.Units*unit))
		}
	}
	return beep.Seq(parts...), nil
}

// sine streams n samples of a tone with a linear attack and release.
func sine(freq float64, n int) beep.Streamer {
	ramp := min(SampleRate.N(rampDuration), n/2)
	step := 2 * math.Pi * freq / float64(SampleRate)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= n {
			return 0, false
		}
		count := min(len(samples), n-pos)
		for i := range count {
			gain := amplitude
			switch {
			case ramp > 0 && pos < ramp:
				gain *= float64(pos) / float64(ramp)
			case ramp > 0 && pos >= n-ramp:
				gain *= float64(n-pos) / float64(ramp)
			}
			v := gain * math.Sin(step*float64(pos))
			samples[i][0] = v
			samples[i][1] = v
			pos++
		}
		return count, true
	})
}

// SoundMorse plays a pattern and blocks until it finishes or ctx is done.
func SoundMorse(ctx context.Context, pattern string, tone Tone) error {
	s, err := MorseStreamer(pattern, tone)
	if err != nil {
		return err
	}
	return playWithMalgo(ctx, s)
}
