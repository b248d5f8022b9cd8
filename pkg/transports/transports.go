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

// Package transports defines the contract shared by every device transport.
//
// A transport delivers the device's newline separated text as Line values on
// a channel. Serial, Bluetooth and MQTT all produce identical lines for
// identical device output, so decoding never depends on how the data
// arrived.
package transports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
)

var (
	ErrNotConnected       = errors.New("transport not connected")
	ErrUnsupportedCommand = errors.New("unsupported device command")
)

type DriverMetadata struct {
	ID                string
	Description       string
	DefaultAutoDetect bool
}

// Line is one trimmed, non-empty line from the device, or a terminal event.
// When Error is set the transport failed and has already closed itself.
// When Closed is set the stream ended or the peer went away.
type Line struct {
	Time   time.Time
	Error  error
	Source string
	Text   string
	Closed bool
}

// Command is a host to device request.
type Command string

const (
	CommandTest   Command = "TEST"
	CommandReset  Command = "RESET"
	CommandStatus Command = "STATUS"
	CommandPing   Command = "PING"
)

var commands = []Command{CommandTest, CommandReset, CommandStatus, CommandPing}

// ParseCommand accepts a command name in any case.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range commands {
		if c == known {
			return c, nil
		}
	}
	return "", ErrUnsupportedCommand
}

// Wire returns the newline terminated bytes sent to the device.
func (c Command) Wire() []byte {
	return []byte(string(c) + "\n")
}

// Reply returns the line the device answers a command with.
func (c Command) Reply() string {
	switch c {
	case CommandTest:
		return "TEST_OK"
	case CommandReset:
		return "RESET_OK"
	case CommandStatus:
		return "STATUS_READY"
	case CommandPing:
		return "PONG"
	default:
		return ""
	}
}

type Transport interface {
	// Metadata returns static configuration for this driver.
	Metadata() DriverMetadata
	// IDs returns the driver names accepted in a connection string.
	IDs() []string
	// Open connects to the device and starts delivering lines. The
	// transport stops sending as soon as Close is called, even if data is
	// still buffered.
	Open(ctx context.Context, device config.TransportConnect, lines chan<- Line) error
	// Close stops delivery and releases the device. Safe to call more than
	// once.
	Close() error
	// Detect searches for a device not already in use and returns its
	// connection string, or an empty string.
	Detect(connected []string) string
	// Device returns the connection string.
	Device() string
	// Connected returns true while the device is open and delivering.
	Connected() bool
	// Info returns a human readable description of the connected device.
	Info() string
	// Send writes a command to the device.
	Send(cmd Command) error
}

// Emit sends a line unless done is closed first. It returns false when the
// caller should stop.
func Emit(done <-chan struct{}, lines chan<- Line, l Line) bool {
	select {
	case <-done:
		return false
	default:
	}

	select {
	case lines <- l:
		return true
	case <-done:
		return false
	}
}
