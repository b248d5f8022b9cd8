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

// Package bluetooth reads blink detector lines from a BLE peripheral over
// GATT notifications.
package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/blinktalk/blinktalk-core/pkg/transports/lines"
	"github.com/rs/zerolog/log"
)

const (
	DriverID       = "bluetooth"
	connectTimeout = 20 * time.Second
)

var (
	ErrCharacteristicNotFound = errors.New("no supported GATT service found on device")
	ErrUnsupportedPlatform    = errors.New("bluetooth is not supported on this platform")
)

// Profile names the GATT service and characteristics a detector exposes.
type Profile struct {
	Name    string
	Service string
	Notify  string
	Write   string
}

var (
	// BlinkProfile is the detector firmware's own service.
	BlinkProfile = Profile{
		Name:    "blinktalk",
		Service: "12345678-1234-1234-1234-123456789abc",
		Notify:  "87654321-4321-4321-4321-cba987654321",
		Write:   "11111111-2222-3333-4444-555555555555",
	}
	// SerialBridgeProfile is the HM-10 style UART bridge, where one
	// characteristic carries both directions.
	SerialBridgeProfile = Profile{
		Name:    "hm10",
		Service: "0000ffe0-0000-1000-8000-00805f9b34fb",
		Notify:  "0000ffe1-0000-1000-8000-00805f9b34fb",
		Write:   "0000ffe1-0000-1000-8000-00805f9b34fb",
	}
	// DefaultProfiles are tried in order.
	DefaultProfiles = []Profile{BlinkProfile, SerialBridgeProfile}
)

// DeviceInfo describes a known BLE device.
type DeviceInfo struct {
	Address   string   `json:"address"`
	Name      string   `json:"name"`
	UUIDs     []string `json:"uuids,omitempty"`
	RSSI      int16    `json:"rssi,omitempty"`
	Connected bool     `json:"connected"`
	Paired    bool     `json:"paired"`
}

// Supported returns true if the device advertises one of the profiles.
func (d DeviceInfo) Supported(profiles []Profile) bool {
	for _, p := range profiles {
		for _, u := range d.UUIDs {
			if strings.EqualFold(u, p.Service) {
				return true
			}
		}
	}
	return false
}

// Peer is a connected device with notifications enabled.
type Peer interface {
	// Payloads delivers each notification value. Closed when the peer
	// disconnects or Close is called.
	Payloads() <-chan []byte
	Write(p []byte) error
	Profile() Profile
	Name() string
	Close() error
}

// Central is the host side Bluetooth stack.
type Central interface {
	Connect(ctx context.Context, address string, profiles []Profile) (Peer, error)
	Devices(ctx context.Context) ([]DeviceInfo, error)
}

type Transport struct {
	central  Central
	peer     Peer
	done     chan struct{}
	device   config.TransportConnect
	profiles []Profile
	polling  bool
	mu       syncutil.RWMutex
}

func NewTransport(_ *config.Instance) *Transport {
	return &Transport{
		central:  newSystemCentral(),
		profiles: DefaultProfiles,
	}
}

// NewTransportWithCentral uses a custom Bluetooth stack.
func NewTransportWithCentral(central Central, profiles []Profile) *Transport {
	if len(profiles) == 0 {
		profiles = DefaultProfiles
	}
	return &Transport{
		central:  central,
		profiles: profiles,
	}
}

func (*Transport) Metadata() transports.DriverMetadata {
	return transports.DriverMetadata{
		ID:                DriverID,
		DefaultAutoDetect: false,
		Description:       "Bluetooth LE blink detector",
	}
}

func (*Transport) IDs() []string {
	return []string{DriverID, "ble"}
}

func (t *Transport) Open(
	ctx context.Context,
	device config.TransportConnect,
	out chan<- transports.Line,
) error {
	if !slices.Contains(t.IDs(), device.Driver) {
		return errors.New("invalid transport id: " + device.Driver)
	}
	if device.Path == "" {
		return errors.New("bluetooth device address is required")
	}
	if t.central == nil {
		return ErrUnsupportedPlatform
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	peer, err := t.central.Connect(ctx, device.Path, t.profiles)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", device.Path, err)
	}

	done := make(chan struct{})

	t.mu.Lock()
	t.peer = peer
	t.device = device
	t.done = done
	t.polling = true
	t.mu.Unlock()

	log.Info().
		Str("address", device.Path).
		Str("name", peer.Name()).
		Str("profile", peer.Profile().Name).
		Msg("opened bluetooth transport")

	go t.readLoop(peer, done, out)

	return nil
}

func (t *Transport) readLoop(peer Peer, done <-chan struct{}, out chan<- transports.Line) {
	source := t.Device()
	payloads := peer.Payloads()

	send := func(l transports.Line) bool {
		l.Source = source
		l.Time = time.Now()
		return transports.Emit(done, out, l)
	}

	for {
		select {
		case <-done:
			return
		case p, ok := <-payloads:
			if !ok {
				select {
				case <-done:
					return
				default:
				}
				log.Warn().Str("address", source).Msg("bluetooth peer disconnected")
				send(transports.Line{Closed: true})
				if err := t.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close bluetooth transport")
				}
				return
			}
			for _, text := range lines.SplitPayload(p) {
				if !send(transports.Line{Text: text}) {
					return
				}
			}
		}
	}
}

// Close disables notifications and disconnects the peer. Safe to call more
// than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.polling = false
	peer := t.peer
	t.peer = nil
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	address := t.device.Path
	t.mu.Unlock()

	if peer == nil {
		return nil
	}
	log.Info().Str("address", address).Msg("closing bluetooth transport")
	if err := peer.Close(); err != nil {
		return fmt.Errorf("failed to close bluetooth peer: %w", err)
	}
	return nil
}

// Detect returns the first known device advertising a supported service
// that is not already connected.
func (t *Transport) Detect(connected []string) string {
	if t.central == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := t.central.Devices(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("bluetooth detection failed")
		return ""
	}

	for _, d := range devices {
		if !d.Supported(t.profiles) {
			continue
		}
		conn := config.TransportConnect{Driver: DriverID, Path: d.Address}
		if slices.Contains(connected, conn.ConnectionString()) {
			continue
		}
		return conn.ConnectionString()
	}
	return ""
}

// Devices lists devices known to the Bluetooth stack.
func (t *Transport) Devices(ctx context.Context) ([]DeviceInfo, error) {
	if t.central == nil {
		return nil, ErrUnsupportedPlatform
	}
	devices, err := t.central.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bluetooth devices: %w", err)
	}
	return devices, nil
}

func (t *Transport) Device() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.device.ConnectionString()
}

func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.polling && t.peer != nil
}

func (t *Transport) Info() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.peer == nil {
		return t.device.Path
	}
	return fmt.Sprintf("%s (%s, %s)", t.peer.Name(), t.device.Path, t.peer.Profile().Name)
}

func (t *Transport) Send(cmd transports.Command) error {
	t.mu.RLock()
	peer := t.peer
	polling := t.polling
	t.mu.RUnlock()

	if !polling || peer == nil {
		return transports.ErrNotConnected
	}
	if err := peer.Write(cmd.Wire()); err != nil {
		return fmt.Errorf("failed to write command %s: %w", cmd, err)
	}
	log.Debug().Str("command", string(cmd)).Msg("sent command to bluetooth device")
	return nil
}
