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

package testutils

import (
	"errors"
	"io"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
)

// MockSerialPort is an in-memory SerialPort. Reads are served from ReadData
// in chunks of at most ChunkSize bytes (all at once when zero), then block
// briefly and return nothing, like a port with a read timeout.
type MockSerialPort struct {
	ReadError  error
	CloseError error
	TimeoutErr error
	WriteError error
	ReadFunc   func(p []byte) (n int, err error)
	ReadData   []byte
	written    []byte
	ReadIndex  int
	ChunkSize  int
	// EOFAfterData makes Read return io.EOF once ReadData is drained.
	EOFAfterData bool
	Closed       bool
	mu           syncutil.RWMutex
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.RLock()
	closed := m.Closed
	m.mu.RUnlock()

	if closed {
		return 0, errors.New("port closed")
	}

	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}

	if m.ReadError != nil {
		return 0, m.ReadError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadIndex >= len(m.ReadData) {
		if m.EOFAfterData {
			return 0, io.EOF
		}
		m.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		m.mu.Lock()
		return 0, nil
	}

	end := len(m.ReadData)
	if m.ChunkSize > 0 && m.ReadIndex+m.ChunkSize < end {
		end = m.ReadIndex + m.ChunkSize
	}
	n = copy(p, m.ReadData[m.ReadIndex:end])
	m.ReadIndex += n
	return n, nil
}

// Push appends data for later reads.
func (m *MockSerialPort) Push(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadData = append(m.ReadData, data...)
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

// Written returns everything written to the port so far.
func (m *MockSerialPort) Written() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.written))
	copy(out, m.written)
	return out
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	m.Closed = true
	closeError := m.CloseError
	m.mu.Unlock()
	return closeError
}

func (m *MockSerialPort) SetReadTimeout(_ time.Duration) error {
	return m.TimeoutErr
}

func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Closed
}
