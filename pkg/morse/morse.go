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

// Package morse translates between dot/dash patterns and text.
//
// Decoding and encoding are deliberately asymmetric: an unknown pattern
// decodes to "?" while a character with no pattern is dropped when encoding.
package morse

import (
	"regexp"
	"strings"
)

const (
	// Unknown is what Decode yields for a pattern missing from the table.
	Unknown = "?"
	// WordSeparator is the pattern used between encoded words.
	WordSeparator = "/"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	tokenRe      = regexp.MustCompile(`^[.-]+$`)
	validRe      = regexp.MustCompile(`^[.\-\s/]+$`)
)

var codeToChar = map[string]rune{
	".-":   'A',
	"-...": 'B',
	"-.-.": 'C',
	"-..":  'D',
	".":    'E',
	"..-.": 'F',
	"--.":  'G',
	"....": 'H',
	"..":   'I',
	".---": 'J',
	"-.-":  'K',
	".-..": 'L',
	"--":   'M',
	"-.":   'N',
	"---":  'O',
	".--.": 'P',
	"--.-": 'Q',
	".-.":  'R',
	"...":  'S',
	"-":    'T',
	"..-":  'U',
	"...-": 'V',
	".--":  'W',
	"-..-": 'X',
	"-.--": 'Y',
	"--..": 'Z',

	"-----": '0',
	".----": '1',
	"..---": '2',
	"...--": '3',
	"....-": '4',
	".....": '5',
	"-....": '6',
	"--...": '7',
	"---..": '8',
	"----.": '9',

	".-.-.-":  '.',
	"--..--":  ',',
	"..--..":  '?',
	".----.":  '\'',
	"-.-.--":  '!',
	"-..-.":   '/',
	"-.--.":   '(',
	"-.--.-":  ')',
	".-...":   '&',
	"---...":  ':',
	"-.-.-.":  ';',
	"-...-":   '=',
	".-.-.":   '+',
	"-....-":  '-',
	"..--.-":  '_',
	".-..-.":  '"',
	"...-..-": '$',
	".--.-.":  '@',
}

var charToCode = func() map[rune]string {
	m := make(map[rune]string, len(codeToChar))
	for code, c := range codeToChar {
		m[c] = code
	}
	return m
}()

// Table returns a copy of the pattern to character table.
func Table() map[string]rune {
	t := make(map[string]rune, len(codeToChar))
	for k, v := range codeToChar {
		t[k] = v
	}
	return t
}

// CharFor returns the character for a single pattern.
func CharFor(token string) (rune, bool) {
	c, ok := codeToChar[token]
	return c, ok
}

// TokenFor returns the pattern for a single character. Lowercase letters
// are looked up as uppercase.
func TokenFor(c rune) (string, bool) {
	code, ok := charToCode[toUpper(c)]
	return code, ok
}

// normalize trims the pattern and collapses internal whitespace runs to a
// single space.
func normalize(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Decode converts one or more space separated patterns into text. A lone
// "/" decodes to a single space, as does any "/" token inside the pattern.
// Unknown patterns decode to "?" and the results are concatenated.
func Decode(pattern string) string {
	pattern = normalize(pattern)
	if pattern == "" {
		return ""
	}
	if pattern == WordSeparator {
		return " "
	}

	var sb strings.Builder
	for _, token := range strings.Split(pattern, " ") {
		if token == WordSeparator {
			sb.WriteByte(' ')
			continue
		}
		if c, ok := codeToChar[token]; ok {
			sb.WriteRune(c)
		} else {
			sb.WriteString(Unknown)
		}
	}
	return sb.String()
}

// Encode converts text to space separated patterns. Spaces become "/" and
// characters with no pattern are silently dropped.
func Encode(text string) string {
	text = strings.ToUpper(text)
	codes := make([]string, 0, len(text))
	for _, c := range text {
		if c == ' ' {
			codes = append(codes, WordSeparator)
			continue
		}
		if code, ok := charToCode[c]; ok {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " ")
}

// IsValidMorse reports whether s is non-empty and made only of dots,
// dashes, whitespace and slashes.
func IsValidMorse(s string) bool {
	return s != "" && validRe.MatchString(s)
}

// IsToken reports whether s is a single dot/dash pattern with no
// separators.
func IsToken(s string) bool {
	return tokenRe.MatchString(s)
}

func toUpper(c rune) rune {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
