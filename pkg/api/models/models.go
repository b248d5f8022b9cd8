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
	"encoding/json"
)

// Notification methods broadcast to websocket clients and publishers.
const (
	NotificationDisplayUpdated       = "display.updated"
	NotificationTransportConnected   = "transport.connected"
	NotificationTransportDisconnect  = "transport.disconnected"
	NotificationTransportError       = "transport.error"
	NotificationMessagesSaved        = "messages.saved"
	NotificationMessagesSaveFailed   = "messages.save_failed"
	NotificationSessionCleared       = "session.cleared"
	NotificationTransportCommandSent = "transport.command_sent"
	NotificationSettingsReloaded     = "settings.reloaded"
)

type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Request is a method call sent over the websocket. ID is echoed back
// unchanged in the matching Response.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result any             `json:"result,omitempty"`
	Error  *ErrorResponse  `json:"error,omitempty"`
}
