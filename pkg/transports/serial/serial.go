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

// Package serial reads blink detector lines from a USB serial port.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/blinktalk/blinktalk-core/pkg/transports/lines"
	"github.com/blinktalk/blinktalk-core/pkg/transports/testutils"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	DriverID    = "serial"
	readTimeout = 100 * time.Millisecond
	readBufSize = 1024
)

type Transport struct {
	port        testutils.SerialPort
	portFactory testutils.SerialPortFactory
	cfg         *config.Instance
	done        chan struct{}
	device      config.TransportConnect
	path        string
	polling     bool
	mu          syncutil.RWMutex // protects polling, port and done
	writeMu     syncutil.Mutex
}

func NewTransport(cfg *config.Instance) *Transport {
	return &Transport{
		cfg:         cfg,
		portFactory: testutils.DefaultSerialPortFactory,
	}
}

func (*Transport) Metadata() transports.DriverMetadata {
	return transports.DriverMetadata{
		ID:                DriverID,
		DefaultAutoDetect: true,
		Description:       "USB serial blink detector",
	}
}

func (*Transport) IDs() []string {
	return []string{DriverID, "usb"}
}

func (t *Transport) baudRate() int {
	if t.cfg == nil {
		return config.DefaultBaudRate
	}
	return t.cfg.BaudRate()
}

func (t *Transport) Open(
	_ context.Context,
	device config.TransportConnect,
	out chan<- transports.Line,
) error {
	if !slices.Contains(t.IDs(), device.Driver) {
		return errors.New("invalid transport id: " + device.Driver)
	}

	path := device.Path

	if runtime.GOOS != "windows" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("failed to stat device path %s: %w", path, err)
		}
	}

	port, err := t.portFactory(path, &serial.Mode{
		BaudRate: t.baudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	err = port.SetReadTimeout(readTimeout)
	if err != nil {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close serial port after setup error")
		}
		return fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	done := make(chan struct{})

	t.mu.Lock()
	t.port = port
	t.device = device
	t.path = path
	t.done = done
	t.polling = true
	t.mu.Unlock()

	log.Info().Str("path", path).Int("baud", t.baudRate()).Msg("opened serial transport")

	go t.readLoop(port, done, out)

	return nil
}

func (t *Transport) isPolling() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.polling
}

func (t *Transport) readLoop(port testutils.SerialPort, done <-chan struct{}, out chan<- transports.Line) {
	source := t.Device()
	splitter := lines.NewSplitter()
	buf := make([]byte, readBufSize)

	send := func(l transports.Line) bool {
		l.Source = source
		l.Time = time.Now()
		return transports.Emit(done, out, l)
	}

	for t.isPolling() {
		n, err := port.Read(buf)
		if errors.Is(err, io.EOF) {
			log.Info().Str("path", source).Msg("serial stream ended")
			for _, text := range splitter.Flush() {
				if !send(transports.Line{Text: text}) {
					return
				}
			}
			send(transports.Line{Closed: true})
			t.closeAfterFailure()
			return
		}
		if err != nil {
			if !t.isPolling() {
				return
			}
			log.Error().Err(err).Str("path", source).Msg("failed to read from serial port")
			send(transports.Line{Error: fmt.Errorf("serial read failed: %w", err)})
			t.closeAfterFailure()
			return
		}

		for _, text := range splitter.Write(buf[:n]) {
			if !t.isPolling() {
				return
			}
			if !send(transports.Line{Text: text}) {
				return
			}
		}
	}
}

func (t *Transport) closeAfterFailure() {
	if err := t.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close serial port")
	}
}

// Close stops the read loop and releases the port. Data buffered after the
// last newline is discarded.
func (t *Transport) Close() error {
	t.mu.Lock()
	wasPolling := t.polling
	t.polling = false
	port := t.port
	t.port = nil
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	t.mu.Unlock()

	if port != nil {
		if wasPolling {
			log.Info().Str("path", t.path).Msg("closing serial transport")
		}
		err := port.Close()
		if err != nil {
			return fmt.Errorf("failed to close serial port: %w", err)
		}
	}
	return nil
}

// Detect returns the first candidate port not already connected.
func (*Transport) Detect(connected []string) string {
	paths, err := helpers.GetSerialDeviceList()
	if err != nil {
		log.Debug().Err(err).Msg("serial detection failed")
		return ""
	}

	for _, path := range paths {
		conn := config.TransportConnect{Driver: DriverID, Path: path}
		if slices.Contains(connected, conn.ConnectionString()) {
			continue
		}
		return conn.ConnectionString()
	}
	return ""
}

func (t *Transport) Device() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.device.ConnectionString()
}

func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.polling && t.port != nil
}

func (t *Transport) Info() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fmt.Sprintf("%s @ %d baud", t.path, t.baudRate())
}

func (t *Transport) Send(cmd transports.Command) error {
	t.mu.RLock()
	port := t.port
	polling := t.polling
	t.mu.RUnlock()

	if !polling || port == nil {
		return transports.ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := port.Write(cmd.Wire()); err != nil {
		return fmt.Errorf("failed to write command %s: %w", cmd, err)
	}
	log.Debug().Str("command", string(cmd)).Msg("sent command to serial device")
	return nil
}
