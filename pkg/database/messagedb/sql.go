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
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func sqlMigrateUp(db *sql.DB) error {
	if err := database.MigrateUp(db, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run message database migrations: %w", err)
	}
	return nil
}

func sqlVacuum(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `vacuum;`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func closeStmt(stmt *sql.Stmt) {
	if closeErr := stmt.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close sql statement")
	}
}

func sqlInsertMessage(ctx context.Context, db *sql.DB, msg *database.Message) error {
	stmt, err := db.PrepareContext(ctx, `
		insert into Messages(
			ID, Text, OriginalText, Translated, Language,
			Characters, Letters, Words, Spaces, CreatedAt
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert statement: %w", err)
	}
	defer closeStmt(stmt)

	_, err = stmt.ExecContext(ctx,
		msg.ID,
		msg.Text,
		msg.OriginalText,
		msg.Translated,
		msg.Language,
		msg.Stats.Characters,
		msg.Stats.Letters,
		msg.Stats.Words,
		msg.Stats.Spaces,
		msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (database.Message, error) {
	var msg database.Message
	var created int64
	err := row.Scan(
		&msg.ID,
		&msg.Text,
		&msg.OriginalText,
		&msg.Translated,
		&msg.Language,
		&msg.Stats.Characters,
		&msg.Stats.Letters,
		&msg.Stats.Words,
		&msg.Stats.Spaces,
		&created,
	)
	if err != nil {
		return msg, err //nolint:wrapcheck // wrapped by callers
	}
	msg.CreatedAt = time.UnixMilli(created)
	return msg, nil
}

const messageColumns = `
	ID, Text, OriginalText, Translated, Language,
	Characters, Letters, Words, Spaces, CreatedAt
`

func sqlGetMessage(ctx context.Context, db *sql.DB, id string) (database.Message, error) {
	row := db.QueryRowContext(ctx, `select `+messageColumns+` from Messages where ID = ?;`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return database.Message{}, ErrNotFound
	}
	if err != nil {
		return database.Message{}, fmt.Errorf("failed to scan message row: %w", err)
	}
	return msg, nil
}

func sqlListMessages(ctx context.Context, db *sql.DB, limit int) ([]database.Message, error) {
	list := make([]database.Message, 0, min(limit, 25))

	q, err := db.PrepareContext(ctx, `
		select `+messageColumns+`
		from Messages
		order by DBID desc
		limit ?;
	`)
	if err != nil {
		return list, fmt.Errorf("failed to prepare message query statement: %w", err)
	}
	defer closeStmt(q)

	rows, err := q.QueryContext(ctx, limit)
	if err != nil {
		return list, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	for rows.Next() {
		msg, scanErr := scanMessage(rows)
		if scanErr != nil {
			return list, fmt.Errorf("failed to scan message row: %w", scanErr)
		}
		list = append(list, msg)
	}
	if err = rows.Err(); err != nil {
		return list, fmt.Errorf("error iterating message rows: %w", err)
	}
	return list, nil
}

func sqlDeleteMessage(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `delete from Messages where ID = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

//goland:noinspection SqlWithoutWhere
func sqlClearMessages(ctx context.Context, db *sql.DB) (int64, error) {
	result, err := db.ExecContext(ctx, `delete from Messages;`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
