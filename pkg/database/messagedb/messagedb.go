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

// Package messagedb stores decoded transcripts in a local SQLite database.
package messagedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

var (
	ErrNullSQL   = errors.New("MessageDB is not connected")
	ErrNotFound  = errors.New("message not found")
	ErrEmptyText = errors.New("message text is empty")
)

const (
	sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"
	// DefaultListLimit caps ListMessages when no limit is given.
	DefaultListLimit = 100
)

type MessageDB struct {
	sql    *sql.DB
	clock  clockwork.Clock
	dbPath string
}

var _ database.MessageDBI = (*MessageDB)(nil)

// OpenMessageDB opens or creates the message database in dataDir and
// brings its schema up to date.
func OpenMessageDB(ctx context.Context, dataDir string) (*MessageDB, error) {
	db := &MessageDB{
		clock:  clockwork.NewRealClock(),
		dbPath: filepath.Join(dataDir, config.MessagesDbFile),
	}
	if err := db.Open(); err != nil {
		return nil, err
	}
	if err := db.sql.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug().Str("path", db.dbPath).Msg("opened message database")
	return db, nil
}

func (db *MessageDB) Open() error {
	if err := os.MkdirAll(filepath.Dir(db.dbPath), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for database: %w", err)
	}
	sqlInstance, err := sql.Open("sqlite3", db.dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	return nil
}

func (db *MessageDB) GetDBPath() string {
	return db.dbPath
}

func (db *MessageDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *MessageDB) Allocate() error {
	return db.MigrateUp()
}

func (db *MessageDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *MessageDB) Vacuum() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlVacuum(context.Background(), db.sql)
}

func (db *MessageDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	db.sql = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting injects a database handle and clock, and allocates the
// schema.
func (db *MessageDB) SetSQLForTesting(sqlDB *sql.DB, clock clockwork.Clock) error {
	db.sql = sqlDB
	db.clock = clock
	return db.Allocate()
}

// SaveMessage stores a transcript and returns its generated ID. Timestamps
// and statistics are computed here, never by the caller. The original text
// is the transcript itself.
func (db *MessageDB) SaveMessage(
	ctx context.Context,
	text string,
	translated bool,
	language string,
) (string, error) {
	return db.insertMessage(ctx, text, text, translated, language)
}

// SaveTranslation stores translated text with the transcript it was
// translated from. An empty original falls back to text.
func (db *MessageDB) SaveTranslation(
	ctx context.Context,
	text string,
	original string,
	language string,
) (string, error) {
	return db.insertMessage(ctx, text, original, true, language)
}

func (db *MessageDB) insertMessage(
	ctx context.Context,
	text string,
	original string,
	translated bool,
	language string,
) (string, error) {
	if db.sql == nil {
		return "", ErrNullSQL
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	original = strings.TrimSpace(original)
	if original == "" {
		original = text
	}

	msg := database.Message{
		ID:           uuid.New().String(),
		Text:         text,
		OriginalText: original,
		Translated:   translated,
		Language:     language,
		CreatedAt:    db.clock.Now(),
		Stats:        database.ComputeStats(text),
	}
	if err := sqlInsertMessage(ctx, db.sql, &msg); err != nil {
		return "", err
	}

	log.Debug().
		Str("id", msg.ID).
		Int("characters", msg.Stats.Characters).
		Str("language", language).
		Msg("saved message")
	return msg.ID, nil
}

func (db *MessageDB) GetMessage(ctx context.Context, id string) (database.Message, error) {
	if db.sql == nil {
		return database.Message{}, ErrNullSQL
	}
	return sqlGetMessage(ctx, db.sql, id)
}

// ListMessages returns the newest messages first. A limit of zero or less
// uses DefaultListLimit.
func (db *MessageDB) ListMessages(ctx context.Context, limit int) ([]database.Message, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return sqlListMessages(ctx, db.sql, limit)
}

func (db *MessageDB) DeleteMessage(ctx context.Context, id string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlDeleteMessage(ctx, db.sql, id)
}

// ClearMessages deletes every message and returns how many were removed.
func (db *MessageDB) ClearMessages(ctx context.Context) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	return sqlClearMessages(ctx, db.sql)
}
