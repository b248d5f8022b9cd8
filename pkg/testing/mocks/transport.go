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
	"fmt"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a testify mock of transports.Transport. Open keeps the
// lines channel so tests can push device output with SimulateLine.
type MockTransport struct {
	mock.Mock
	lines  chan<- transports.Line
	closed chan struct{}
	mu     syncutil.Mutex
}

func NewMockTransport() *MockTransport {
	m := &MockTransport{closed: make(chan struct{})}
	m.On("Close").Return(nil).Maybe()
	return m
}

// SetupBasicMock registers typical answers for the metadata calls.
func (m *MockTransport) SetupBasicMock(id string) {
	m.On("Metadata").Return(transports.DriverMetadata{
		ID:                id,
		Description:       "Mock transport",
		DefaultAutoDetect: true,
	}).Maybe()
	m.On("IDs").Return([]string{id}).Maybe()
	m.On("Connected").Return(true).Maybe()
	m.On("Info").Return("mock device").Maybe()
}

func (m *MockTransport) Metadata() transports.DriverMetadata {
	args := m.Called()
	if md, ok := args.Get(0).(transports.DriverMetadata); ok {
		return md
	}
	return transports.DriverMetadata{}
}

func (m *MockTransport) IDs() []string {
	args := m.Called()
	if ids, ok := args.Get(0).([]string); ok {
		return ids
	}
	return []string{}
}

func (m *MockTransport) Open(ctx context.Context, device config.TransportConnect, lines chan<- transports.Line) error {
	args := m.Called(ctx, device, lines)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	m.mu.Lock()
	m.lines = lines
	m.mu.Unlock()
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	m.mu.Unlock()

	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockTransport) Detect(connected []string) string {
	args := m.Called(connected)
	return args.String(0)
}

func (m *MockTransport) Device() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTransport) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockTransport) Info() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTransport) Send(cmd transports.Command) error {
	args := m.Called(cmd)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// SimulateLine delivers a line the way a transport would, giving up once
// the transport is closed. It returns false if the line was not delivered.
func (m *MockTransport) SimulateLine(l transports.Line) bool {
	m.mu.Lock()
	lines := m.lines
	m.mu.Unlock()
	if lines == nil {
		return false
	}

	if l.Time.IsZero() {
		l.Time = time.Now()
	}
	return transports.Emit(m.closed, lines, l)
}

// SimulateText delivers a text line.
func (m *MockTransport) SimulateText(text string) bool {
	return m.SimulateLine(transports.Line{Text: text, Source: "mock"})
}

// IsClosed returns true once Close has been called.
func (m *MockTransport) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}
