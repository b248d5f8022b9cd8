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

// Package database holds the storage records and interfaces shared by the
// database implementations.
package database

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Stats are computed from a message's text when it is stored.
type Stats struct {
	Characters int `json:"characters"`
	Letters    int `json:"letters"`
	Words      int `json:"words"`
	Spaces     int `json:"spaces"`
}

// ComputeStats counts runes, letters, whitespace separated words and
// whitespace characters.
func ComputeStats(text string) Stats {
	s := Stats{
		Characters: utf8.RuneCountInString(text),
		Words:      len(strings.Fields(text)),
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			s.Letters++
		case unicode.IsSpace(r):
			s.Spaces++
		}
	}
	return s
}

type Message struct {
	CreatedAt    time.Time `json:"timestamp"`
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	OriginalText string    `json:"originalText"`
	Language     string    `json:"language"`
	Stats        Stats     `json:"stats"`
	Translated   bool      `json:"translated"`
}

type GenericDBI interface {
	Open() error
	UnsafeGetSQLDb() *sql.DB
	Allocate() error
	MigrateUp() error
	Vacuum() error
	Close() error
	GetDBPath() string
}

type MessageDBI interface {
	GenericDBI
	SaveMessage(ctx context.Context, text string, translated bool, language string) (string, error)
	SaveTranslation(ctx context.Context, text, original, language string) (string, error)
	GetMessage(ctx context.Context, id string) (Message, error)
	ListMessages(ctx context.Context, limit int) ([]Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ClearMessages(ctx context.Context) (int64, error)
}
