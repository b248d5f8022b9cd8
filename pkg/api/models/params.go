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

package models

// ManualParams is a line of morse typed by the user. Display glyphs are
// accepted.
type ManualParams struct {
	Input string `json:"input" validate:"required,morse"`
}

type CommandParams struct {
	Command string `json:"command" validate:"required,command"`
}

type ConnectParams struct {
	Driver string `json:"driver" validate:"required,driver"`
	Path   string `json:"path"`
}

// SaveParams saves Text, or the current transcript when Text is empty.
type SaveParams struct {
	Text       string `json:"text"`
	Language   string `json:"language" validate:"omitempty,language"`
	Translated bool   `json:"translated"`
}

type MessagesParams struct {
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

type DeleteMessageParams struct {
	ID string `json:"id" validate:"required,uuid"`
}
