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

package notifications

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayUpdated(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	DisplayUpdated(ns, interpreter.DisplayUpdate{Building: ".-", Display: "•—", DecodedText: "HI"})

	n := <-ns
	assert.Equal(t, models.NotificationDisplayUpdated, n.Method)

	var got interpreter.DisplayUpdate
	require.NoError(t, json.Unmarshal(n.Params, &got))
	assert.Equal(t, ".-", got.Building)
	assert.Equal(t, "HI", got.DecodedText)
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	TransportError(ns, "serial:/dev/ttyUSB0", errors.New("unplugged"))

	n := <-ns
	assert.Equal(t, models.NotificationTransportError, n.Method)

	var ev models.TransportEvent
	require.NoError(t, json.Unmarshal(n.Params, &ev))
	assert.Equal(t, "serial:/dev/ttyUSB0", ev.Device)
	assert.Equal(t, "unplugged", ev.Error)
	assert.False(t, ev.Time.IsZero())
}

func TestSessionCleared_NoParams(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	SessionCleared(ns)

	n := <-ns
	assert.Equal(t, models.NotificationSessionCleared, n.Method)
	assert.Empty(t, n.Params)
}

func TestSend_FullQueueDrops(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	SessionCleared(ns)
	MessageSaved(ns, "id", 10, true)

	assert.Len(t, ns, 1)
	assert.Equal(t, models.NotificationSessionCleared, (<-ns).Method)
}

func TestSend_NilChannel(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		MessageSaveFailed(nil, errors.New("disk full"), 10, true)
	})
}

func TestSettingsReloaded(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	SettingsReloaded(ns, models.SettingsResponse{TargetLanguage: "de", AutoSave: true})

	n := <-ns
	assert.Equal(t, models.NotificationSettingsReloaded, n.Method)
	assert.JSONEq(t, `{"targetLanguage":"de","autoSave":true,"autoConnect":false,"autoDetect":false}`, string(n.Params))
}
