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

package mocks

import (
	"context"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/stretchr/testify/mock"
)

// MockSession is a testify mock of the session the API drives. Errors are
// returned unwrapped so handlers can classify them.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Status() *models.TransportStatus {
	args := m.Called()
	if st, ok := args.Get(0).(*models.TransportStatus); ok {
		return st
	}
	return nil
}

func (m *MockSession) Snapshot() interpreter.State {
	args := m.Called()
	if st, ok := args.Get(0).(interpreter.State); ok {
		return st
	}
	return interpreter.State{}
}

func (m *MockSession) Display() interpreter.DisplayUpdate {
	args := m.Called()
	if d, ok := args.Get(0).(interpreter.DisplayUpdate); ok {
		return d
	}
	return interpreter.DisplayUpdate{}
}

func (m *MockSession) AutoSave() bool {
	return m.Called().Bool(0)
}

func (m *MockSession) Settings() models.SettingsResponse {
	args := m.Called()
	if st, ok := args.Get(0).(models.SettingsResponse); ok {
		return st
	}
	return models.SettingsResponse{}
}

func (m *MockSession) ManualEntry(input string) string {
	return m.Called(input).String(0)
}

func (m *MockSession) Clear() {
	m.Called()
}

func (m *MockSession) Save(ctx context.Context, text string, translated bool, language string) (string, error) {
	args := m.Called(ctx, text, translated, language)
	return args.String(0), args.Error(1) //nolint:wrapcheck // mock
}

func (m *MockSession) SendCommand(cmd transports.Command) error {
	return m.Called(cmd).Error(0) //nolint:wrapcheck // mock
}

func (m *MockSession) Connect(ctx context.Context, conn config.TransportConnect) error {
	return m.Called(ctx, conn).Error(0) //nolint:wrapcheck // mock
}

func (m *MockSession) Disconnect() error {
	return m.Called().Error(0) //nolint:wrapcheck // mock
}

func (m *MockSession) DriverIDs() []string {
	args := m.Called()
	if ids, ok := args.Get(0).([]string); ok {
		return ids
	}
	return nil
}

func (m *MockSession) Devices(ctx context.Context) []models.DeviceEntry {
	args := m.Called(ctx)
	if d, ok := args.Get(0).([]models.DeviceEntry); ok {
		return d
	}
	return nil
}

// MockMessageStore is a testify mock of the message list, delete and clear
// calls.
type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) ListMessages(ctx context.Context, limit int) ([]database.Message, error) {
	args := m.Called(ctx, limit)
	msgs, _ := args.Get(0).([]database.Message)
	return msgs, args.Error(1) //nolint:wrapcheck // mock
}

func (m *MockMessageStore) DeleteMessage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0) //nolint:wrapcheck // mock
}

func (m *MockMessageStore) ClearMessages(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1) //nolint:wrapcheck // mock
}

func (m *MockMessageStore) SaveMessage(ctx context.Context, text string, translated bool, language string) (string, error) {
	args := m.Called(ctx, text, translated, language)
	return args.String(0), args.Error(1) //nolint:wrapcheck // mock
}

func (m *MockMessageStore) SaveTranslation(ctx context.Context, text, original, language string) (string, error) {
	args := m.Called(ctx, text, original, language)
	return args.String(0), args.Error(1) //nolint:wrapcheck // mock
}
