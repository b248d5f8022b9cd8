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

package messagedb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessageDB(t *testing.T) (*MessageDB, *clockwork.FakeClock) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "messages_test.db"))
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	db := &MessageDB{}
	require.NoError(t, db.SetSQLForTesting(sqlDB, clock))
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close MessageDB: %v", err)
		}
	})
	return db, clock
}

func TestOpenMessageDB_CreatesSchema(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	db, err := OpenMessageDB(context.Background(), dir)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, filepath.Join(dir, "messages.db"), db.GetDBPath())
	require.NoError(t, db.MigrateUp(), "migrations are idempotent")

	_, err = db.SaveMessage(context.Background(), "HELLO", false, "en")
	require.NoError(t, err)
}

func TestSaveMessage_RoundTrip(t *testing.T) {
	t.Parallel()

	db, clock := newTestMessageDB(t)
	ctx := context.Background()

	id, err := db.SaveMessage(ctx, "  HELLO WORLD ", false, "en")
	require.NoError(t, err)
	assert.Len(t, id, 36, "uuid id")

	msg, err := db.GetMessage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", msg.Text)
	assert.Equal(t, "HELLO WORLD", msg.OriginalText)
	assert.False(t, msg.Translated)
	assert.Equal(t, "en", msg.Language)
	assert.Equal(t, 11, msg.Stats.Characters)
	assert.Equal(t, 10, msg.Stats.Letters)
	assert.Equal(t, 2, msg.Stats.Words)
	assert.Equal(t, 1, msg.Stats.Spaces)
	assert.True(t, clock.Now().Equal(msg.CreatedAt))
}

func TestSaveTranslation_KeepsOriginal(t *testing.T) {
	t.Parallel()

	db, _ := newTestMessageDB(t)
	ctx := context.Background()

	id, err := db.SaveTranslation(ctx, "BONJOUR", " HELLO ", "fr")
	require.NoError(t, err)
	msg, err := db.GetMessage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "BONJOUR", msg.Text)
	assert.Equal(t, "HELLO", msg.OriginalText)
	assert.True(t, msg.Translated)
	assert.Equal(t, 7, msg.Stats.Characters, "stats describe the stored text")

	id, err = db.SaveTranslation(ctx, "HOLA", "", "es")
	require.NoError(t, err)
	msg, err = db.GetMessage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "HOLA", msg.OriginalText, "no original falls back to text")
}

func TestSaveMessage_EmptyText(t *testing.T) {
	t.Parallel()

	db, _ := newTestMessageDB(t)
	_, err := db.SaveMessage(context.Background(), "   ", false, "en")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestListMessages_NewestFirst(t *testing.T) {
	t.Parallel()

	db, clock := newTestMessageDB(t)
	ctx := context.Background()

	for _, text := range []string{"ONE", "TWO", "THREE"} {
		_, err := db.SaveMessage(ctx, text, false, "en")
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	list, err := db.ListMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "THREE", list[0].Text)
	assert.Equal(t, "ONE", list[2].Text)
	assert.True(t, list[0].CreatedAt.After(list[2].CreatedAt))

	list, err = db.ListMessages(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteAndClearMessages(t *testing.T) {
	t.Parallel()

	db, _ := newTestMessageDB(t)
	ctx := context.Background()

	id, err := db.SaveMessage(ctx, "SOS", false, "en")
	require.NoError(t, err)
	_, err = db.SaveMessage(ctx, "OK", false, "en")
	require.NoError(t, err)

	require.NoError(t, db.DeleteMessage(ctx, id))
	require.ErrorIs(t, db.DeleteMessage(ctx, id), ErrNotFound)

	_, err = db.GetMessage(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := db.ClearMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := db.ListMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNullSQL(t *testing.T) {
	t.Parallel()

	db := &MessageDB{}
	ctx := context.Background()

	_, err := db.SaveMessage(ctx, "A", false, "en")
	require.ErrorIs(t, err, ErrNullSQL)
	_, err = db.GetMessage(ctx, "x")
	require.ErrorIs(t, err, ErrNullSQL)
	_, err = db.ListMessages(ctx, 1)
	require.ErrorIs(t, err, ErrNullSQL)
	require.ErrorIs(t, db.DeleteMessage(ctx, "x"), ErrNullSQL)
	_, err = db.ClearMessages(ctx)
	require.ErrorIs(t, err, ErrNullSQL)
	require.ErrorIs(t, db.MigrateUp(), ErrNullSQL)
	require.NoError(t, db.Close())
}
