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

package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/audio"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/blinktalk/blinktalk-core/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func displayNotification(t *testing.T, building string) models.Notification {
	t.Helper()

	data, err := json.Marshal(interpreter.DisplayUpdate{Building: building})
	require.NoError(t, err)
	return models.Notification{Method: models.NotificationDisplayUpdated, Params: data}
}

func TestNewElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		prev string
		cur  string
		want string
	}{
		{name: "first element", prev: "", cur: ".", want: "."},
		{name: "extends", prev: ".", cur: ".-", want: "-"},
		{name: "after break", prev: interpreter.EmptyBuilding, cur: "-", want: "-"},
		{name: "break", prev: ".-", cur: interpreter.EmptyBuilding, want: ""},
		{name: "unchanged", prev: "..", cur: "..", want: ""},
		{name: "new letter", prev: "...", cur: "-.", want: "-."},
		{name: "glyphs", prev: "", cur: "•—", want: ".-"},
		{name: "tagged noise", prev: "", cur: "[E] .", want: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, newElements(tt.prev, tt.cur))
		})
	}
}

func TestFeedback_Sidetone(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.SetSidetone(true)
	player := &mocks.MockPlayer{}
	tone := audio.Tone{Frequency: 600, WPM: 20}
	player.On("PlayMorse", ".", tone).Return(nil).Twice()
	player.On("PlayMorse", "-", tone).Return(nil).Once()

	f := NewFeedback(cfg, player, t.TempDir())
	f.handle(displayNotification(t, "."))
	f.handle(displayNotification(t, ".-"))
	f.handle(displayNotification(t, interpreter.EmptyBuilding))
	f.handle(displayNotification(t, "."))

	player.AssertExpectations(t)
}

func TestFeedback_SidetoneDisabled(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	player := &mocks.MockPlayer{}

	f := NewFeedback(cfg, player, t.TempDir())
	f.handle(displayNotification(t, "..."))

	player.AssertNotCalled(t, "PlayMorse", mock.Anything, mock.Anything)
	assert.Equal(t, "...", f.building, "still tracked while muted")
}

func TestFeedback_Cues(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.SetAudioFeedback(true)
	player := &mocks.MockPlayer{}
	player.On("PlayMorse", audio.SaveCue, mock.Anything).Return(nil).Once()
	player.On("PlayMorse", audio.FailCue, mock.Anything).Return(nil).Twice()

	f := NewFeedback(cfg, player, t.TempDir())
	f.handle(models.Notification{Method: models.NotificationMessagesSaved})
	f.handle(models.Notification{Method: models.NotificationMessagesSaveFailed})
	f.handle(models.Notification{Method: models.NotificationTransportError})

	player.AssertExpectations(t)
}

func TestFeedback_CustomSound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgDir := t.TempDir()
	data := "config_schema = 1\n[audio]\nfeedback = true\nsave_sound = \"done.wav\"\nfail_sound = \"\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, config.CfgFile), []byte(data), 0o600))
	cfg, err := config.NewConfig(cfgDir, config.BaseDefaults)
	require.NoError(t, err)

	player := &mocks.MockPlayer{}
	player.On("PlayFile", filepath.Join(dir, "sounds", "done.wav")).Return(nil).Once()

	f := NewFeedback(cfg, player, dir)
	f.handle(models.Notification{Method: models.NotificationMessagesSaved})
	f.handle(models.Notification{Method: models.NotificationMessagesSaveFailed})

	player.AssertExpectations(t)
	player.AssertNotCalled(t, "PlayMorse", mock.Anything, mock.Anything)
}

func TestFeedback_RunClearsCacheOnReload(t *testing.T) {
	t.Parallel()

	player := &mocks.MockPlayer{}
	player.On("ClearFileCache").Return().Once()

	f := NewFeedback(newTestConfig(t), player, t.TempDir())
	ns := make(chan models.Notification, 1)
	ns <- models.Notification{Method: models.NotificationSettingsReloaded}
	close(ns)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.Run(ctx, ns))
	player.AssertExpectations(t)
}
