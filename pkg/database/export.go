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

package database

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
)

type csvMessage struct {
	ID           string `csv:"id"`
	Timestamp    string `csv:"timestamp"`
	Text         string `csv:"text"`
	OriginalText string `csv:"original_text"`
	Language     string `csv:"language"`
	Translated   bool   `csv:"translated"`
	Characters   int    `csv:"characters"`
	Letters      int    `csv:"letters"`
	Words        int    `csv:"words"`
	Spaces       int    `csv:"spaces"`
}

// WriteCSV writes messages as CSV with a header row. Timestamps are UTC
// RFC 3339.
func WriteCSV(w io.Writer, messages []Message) error {
	rows := make([]csvMessage, 0, len(messages))
	for _, m := range messages {
		rows = append(rows, csvMessage{
			ID:           m.ID,
			Timestamp:    m.CreatedAt.UTC().Format(time.RFC3339),
			Text:         m.Text,
			OriginalText: m.OriginalText,
			Language:     m.Language,
			Translated:   m.Translated,
			Characters:   m.Stats.Characters,
			Letters:      m.Stats.Letters,
			Words:        m.Stats.Words,
			Spaces:       m.Stats.Spaces,
		})
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write messages csv: %w", err)
	}
	return nil
}
