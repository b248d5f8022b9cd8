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

package morse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{name: "empty", pattern: "", expected: ""},
		{name: "whitespace only", pattern: "   \t ", expected: ""},
		{name: "single dot", pattern: ".", expected: "E"},
		{name: "single dash", pattern: "-", expected: "T"},
		{name: "letter", pattern: ".-", expected: "A"},
		{name: "digit", pattern: "-----", expected: "0"},
		{name: "punctuation", pattern: ".-.-.-", expected: "."},
		{name: "slash character", pattern: "-..-.", expected: "/"},
		{name: "word separator", pattern: "/", expected: " "},
		{name: "padded word separator", pattern: " / ", expected: " "},
		{name: "multiple letters", pattern: "... --- ...", expected: "SOS"},
		{name: "collapses whitespace", pattern: "  ....   ..  ", expected: "HI"},
		{name: "separator inside pattern", pattern: ".- / -...", expected: "A B"},
		{name: "unknown token", pattern: "........", expected: "?"},
		{name: "unknown among known", pattern: ".- ........ -", expected: "A?T"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Decode(tt.pattern))
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "empty", text: "", expected: ""},
		{name: "single letter", text: "E", expected: "."},
		{name: "lowercase", text: "sos", expected: "... --- ..."},
		{name: "space becomes separator", text: "A B", expected: ".- / -..."},
		{name: "digits", text: "42", expected: "....- ..---"},
		{name: "unmapped characters dropped", text: "A#B", expected: ".- -..."},
		{name: "only unmapped", text: "#%^", expected: ""},
		{name: "non ascii dropped", text: "Aé", expected: ".-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Encode(tt.text))
		})
	}
}

// Unknown input is handled differently in each direction. Callers rely on
// this, so it is pinned here rather than normalised.
func TestEncodeDecodeAsymmetry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "?", Decode("........"), "unknown patterns render as ?")
	assert.Empty(t, Encode("#"), "unknown characters are dropped, not encoded as ?")
	assert.Equal(t, "AB", Decode(Encode("A#B")))
}

func TestRoundTripTable(t *testing.T) {
	t.Parallel()

	for token, c := range Table() {
		encoded := Encode(string(c))
		require.Equal(t, token, encoded, "encode %q", c)
		assert.Equal(t, string(c), Decode(encoded), "decode %q", token)
	}
}

func TestCharForAndTokenFor(t *testing.T) {
	t.Parallel()

	c, ok := CharFor("--..")
	require.True(t, ok)
	assert.Equal(t, 'Z', c)

	_, ok = CharFor(".-.-.-.-")
	assert.False(t, ok)

	token, ok := TokenFor('q')
	require.True(t, ok)
	assert.Equal(t, "--.-", token)

	_, ok = TokenFor('#')
	assert.False(t, ok)
}

func TestTableIsCopy(t *testing.T) {
	t.Parallel()

	table := Table()
	table["."] = 'X'
	assert.Equal(t, "E", Decode("."))
}

func TestIsValidMorse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "empty", input: "", expected: false},
		{name: "dot", input: ".", expected: true},
		{name: "pattern with spaces", input: ".- -...", expected: true},
		{name: "separator", input: "/", expected: true},
		{name: "whitespace only", input: "   ", expected: true},
		{name: "tabs", input: ".-\t-", expected: true},
		{name: "letters", input: "SOS", expected: false},
		{name: "mixed", input: ".-x", expected: false},
		{name: "pipe", input: "|", expected: false},
		{name: "status reply", input: "STATUS_READY", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsValidMorse(tt.input))
		})
	}
}

func TestIsToken(t *testing.T) {
	t.Parallel()

	assert.True(t, IsToken(".-."))
	assert.False(t, IsToken(""))
	assert.False(t, IsToken(".- -"))
	assert.False(t, IsToken("/"))
}

func TestFormatForDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{name: "empty", pattern: "", expected: ""},
		{name: "dots and dashes", pattern: ".-", expected: "•—"},
		{name: "separator padded", pattern: ".-/-...", expected: "•— / —•••"},
		{name: "whitespace collapsed", pattern: ".-   /   -", expected: "•— / —"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, FormatForDisplay(tt.pattern))
		})
	}
}

func TestCleanDisplay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".- / -...", CleanDisplay(FormatForDisplay(".- / -...")))
	assert.Equal(t, ".-.", CleanDisplay("·–·"))
	assert.Equal(t, "..-", CleanDisplay("••_"))
	assert.Equal(t, "-", CleanDisplay("  —  "))
}
