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

import (
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
)

type TransportStatus struct {
	Driver    string `json:"driver"`
	Device    string `json:"device"`
	Info      string `json:"info"`
	Connected bool   `json:"connected"`
}

type StateResponse struct {
	Transport *TransportStatus  `json:"transport,omitempty"`
	State     interpreter.State `json:"state"`
	Display   string            `json:"display"`
	AutoSave  bool              `json:"autoSave"`
}

type ManualResponse struct {
	Appended string            `json:"appended"`
	State    interpreter.State `json:"state"`
}

type SaveResponse struct {
	ID string `json:"id"`
}

type MessagesResponse struct {
	Messages []database.Message `json:"messages"`
}

type ClearMessagesResponse struct {
	Deleted int64 `json:"deleted"`
}

type DeviceEntry struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Connection  string `json:"connection"`
	Supported   bool   `json:"supported"`
}

type DevicesResponse struct {
	Devices []DeviceEntry `json:"devices"`
}

type CommandResponse struct {
	Command       string `json:"command"`
	ExpectedReply string `json:"expectedReply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// TransportEvent is the payload of transport notifications.
type TransportEvent struct {
	Time   time.Time `json:"time"`
	Device string    `json:"device"`
	Error  string    `json:"error,omitempty"`
}

type MessageSavedEvent struct {
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
	Length int    `json:"length"`
	Auto   bool   `json:"auto"`
}

type SettingsResponse struct {
	TargetLanguage string `json:"targetLanguage"`
	AutoSave       bool   `json:"autoSave"`
	AutoConnect    bool   `json:"autoConnect"`
	AutoDetect     bool   `json:"autoDetect"`
}
