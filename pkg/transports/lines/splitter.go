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

// Package lines splits raw device byte streams into trimmed text lines.
package lines

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
)

// MaxLineLength caps the bytes held while waiting for a newline. A device
// that never sends one would otherwise grow the buffer forever.
const MaxLineLength = 4096

// Splitter buffers a byte stream and returns every complete line. Bytes after
// the last newline are held until more data arrives or Flush is called. It
// is not safe for concurrent use.
type Splitter struct {
	buf []byte
}

func NewSplitter() *Splitter {
	return &Splitter{}
}

// Write appends a chunk and returns the trimmed, non-empty lines it
// completed.
func (s *Splitter) Write(p []byte) []string {
	s.buf = append(s.buf, p...)

	var out []string
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		if line, ok := decodeLine(s.buf[:i]); ok {
			out = append(out, line)
		}
		s.buf = s.buf[i+1:]
	}

	if len(s.buf) > MaxLineLength {
		log.Warn().
			Int("bytes", len(s.buf)).
			Msg("dropping partial line with no newline")
		s.buf = nil
	}
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return out
}

// Flush returns the buffered partial line, if any, and empties the buffer.
// Used when the stream ends cleanly.
func (s *Splitter) Flush() []string {
	rest := s.buf
	s.buf = nil
	if line, ok := decodeLine(rest); ok {
		return []string{line}
	}
	return nil
}

// Reset drops any buffered partial line.
func (s *Splitter) Reset() {
	s.buf = nil
}

// Buffered returns the number of bytes waiting for a newline.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// SplitPayload splits one self-contained message, such as a BLE
// notification, into trimmed non-empty lines. Nothing is carried over
// between calls.
func SplitPayload(p []byte) []string {
	var out []string
	for _, seg := range bytes.Split(p, []byte{'\n'}) {
		if line, ok := decodeLine(seg); ok {
			out = append(out, line)
		}
	}
	return out
}

// decodeLine decodes UTF-8, replacing invalid sequences, and trims the
// result. A newline never appears inside a multi-byte sequence, so splitting
// on it before decoding is safe.
func decodeLine(b []byte) (string, bool) {
	if len(b) == 0 {
		return "", false
	}
	text, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		text = bytes.ToValidUTF8(b, []byte("�"))
	}
	line := strings.TrimSpace(string(text))
	return line, line != ""
}
