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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	msgs := []Message{{
		ID:           "3f1c",
		CreatedAt:    created,
		Text:         "HELLO, WORLD",
		OriginalText: "HELLO, WORLD",
		Language:     "en",
		Stats:        ComputeStats("HELLO, WORLD"),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, msgs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,timestamp,text,original_text,language,translated,characters,letters,words,spaces", lines[0])
	assert.Equal(t, `3f1c,2026-03-01T11:30:00Z,"HELLO, WORLD","HELLO, WORLD",en,false,12,10,2,1`, lines[1])
}

func TestWriteCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "id,timestamp,text,original_text,language,translated,characters,letters,words,spaces\n", buf.String())
}
