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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blinktalk/blinktalk-core/pkg/database"
	testsqlmock "github.com/blinktalk/blinktalk-core/pkg/testing/sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageRowColumns = []string{
	"ID", "Text", "OriginalText", "Translated", "Language",
	"Characters", "Letters", "Words", "Spaces", "CreatedAt",
}

func TestSqlInsertMessage_Success(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.UnixMilli(1767225600123)
	msg := database.Message{
		ID:           "msg-1",
		Text:         "HI MOM",
		OriginalText: "HI MOM",
		Language:     "en",
		CreatedAt:    now,
		Stats:        database.ComputeStats("HI MOM"),
	}

	mock.ExpectPrepare(`insert into Messages.*values`).
		ExpectExec().
		WithArgs("msg-1", "HI MOM", "HI MOM", false, "en", 6, 5, 2, 1, now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = sqlInsertMessage(context.Background(), db, &msg)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlInsertMessage_DatabaseError(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectPrepare(`insert into Messages.*values`).
		ExpectExec().
		WillReturnError(sqlmock.ErrCancelled)

	err = sqlInsertMessage(context.Background(), db, &database.Message{ID: "x", CreatedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute message insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlGetMessage_Success(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`select .* from Messages where ID = \?`).
		WithArgs("msg-1").
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow("msg-1", "SOS", "SOS", true, "fr", 3, 3, 1, 0, int64(1767225600000)))

	msg, err := sqlGetMessage(context.Background(), db, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "SOS", msg.Text)
	assert.True(t, msg.Translated)
	assert.Equal(t, "fr", msg.Language)
	assert.Equal(t, database.Stats{Characters: 3, Letters: 3, Words: 1}, msg.Stats)
	assert.Equal(t, int64(1767225600000), msg.CreatedAt.UnixMilli())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlGetMessage_NotFound(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`select .* from Messages where ID = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = sqlGetMessage(context.Background(), db, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlListMessages_Success(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectPrepare(`select .* from Messages\s+order by DBID desc\s+limit \?`).
		ExpectQuery().
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow("b", "SECOND", "SECOND", false, "en", 6, 6, 1, 0, int64(2000)).
			AddRow("a", "FIRST", "FIRST", false, "en", 5, 5, 1, 0, int64(1000)))

	list, err := sqlListMessages(context.Background(), db, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlListMessages_ScanError(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectPrepare(`select .* from Messages`).
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow("only-one-column"))

	_, err = sqlListMessages(context.Background(), db, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan message row")
}

func TestSqlDeleteMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr  error
		name     string
		affected int64
	}{
		{name: "deleted", affected: 1},
		{name: "missing", affected: 0, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock, err := testsqlmock.NewSQLMock()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectExec(`delete from Messages where ID = \?`).
				WithArgs("msg-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = sqlDeleteMessage(context.Background(), db, "msg-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSqlClearMessages(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`delete from Messages;`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := sqlClearMessages(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
