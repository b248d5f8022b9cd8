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

// Package notifications builds and queues the events pushed to API clients.
package notifications

import (
	"encoding/json"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/rs/zerolog/log"
)

// send queues a notification without blocking. A full queue drops it so a
// stalled client can never hold up line processing.
func send(ns chan<- models.Notification, method string, payload any) {
	if ns == nil {
		return
	}

	var params json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification")
			return
		}
		params = b
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification queue full, dropping notification")
	}
}

func DisplayUpdated(ns chan<- models.Notification, update interpreter.DisplayUpdate) {
	send(ns, models.NotificationDisplayUpdated, update)
}

func TransportConnected(ns chan<- models.Notification, device string) {
	send(ns, models.NotificationTransportConnected, models.TransportEvent{
		Device: device,
		Time:   time.Now(),
	})
}

func TransportDisconnected(ns chan<- models.Notification, device string) {
	send(ns, models.NotificationTransportDisconnect, models.TransportEvent{
		Device: device,
		Time:   time.Now(),
	})
}

func TransportError(ns chan<- models.Notification, device string, err error) {
	ev := models.TransportEvent{Device: device, Time: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	send(ns, models.NotificationTransportError, ev)
}

func CommandSent(ns chan<- models.Notification, payload models.CommandResponse) {
	send(ns, models.NotificationTransportCommandSent, payload)
}

func MessageSaved(ns chan<- models.Notification, id string, length int, auto bool) {
	send(ns, models.NotificationMessagesSaved, models.MessageSavedEvent{
		ID:     id,
		Length: length,
		Auto:   auto,
	})
}

func MessageSaveFailed(ns chan<- models.Notification, err error, length int, auto bool) {
	send(ns, models.NotificationMessagesSaveFailed, models.MessageSavedEvent{
		Error:  err.Error(),
		Length: length,
		Auto:   auto,
	})
}

func SessionCleared(ns chan<- models.Notification) {
	send(ns, models.NotificationSessionCleared, nil)
}

func SettingsReloaded(ns chan<- models.Notification, settings models.SettingsResponse) {
	send(ns, models.NotificationSettingsReloaded, settings)
}
