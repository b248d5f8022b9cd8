//go:build linux

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

package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"
)

const (
	resolvePollInterval = 100 * time.Millisecond
	disconnectTimeout   = 5 * time.Second
)

// bluezCentral talks to BlueZ on the system bus. Each connected peer gets a
// private bus connection so closing it never affects other users.
type bluezCentral struct{}

func newSystemCentral() Central {
	return &bluezCentral{}
}

func openSystemBus() (*dbus.Conn, error) {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system D-Bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to authenticate with system D-Bus: %w", err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to complete D-Bus handshake: %w", err)
	}
	return conn, nil
}

func getManagedObjects(ctx context.Context, conn *dbus.Conn) (managedObjects, error) {
	var objects managedObjects
	obj := conn.Object(bluezService, "/")
	err := obj.CallWithContext(ctx, dbusObjectManager+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("failed to list BlueZ objects: %w", err)
	}
	return objects, nil
}

func (*bluezCentral) Devices(ctx context.Context) ([]DeviceInfo, error) {
	conn, err := openSystemBus()
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	objects, err := getManagedObjects(ctx, conn)
	if err != nil {
		return nil, err
	}
	return listDevices(objects), nil
}

func (*bluezCentral) Connect(ctx context.Context, address string, profiles []Profile) (Peer, error) {
	conn, err := openSystemBus()
	if err != nil {
		return nil, err
	}

	peer, err := connectPeer(ctx, conn, address, profiles)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return peer, nil
}

// systemBus is the part of a BlueZ connection used to bring a peer up and
// tear it down again.
type systemBus interface {
	ManagedObjects(ctx context.Context) (managedObjects, error)
	Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) error
	Property(path dbus.ObjectPath, name string) (dbus.Variant, error)
	Watch(path dbus.ObjectPath) error
	Unwatch(path dbus.ObjectPath) error
}

type dbusBus struct {
	conn *dbus.Conn
}

func propertiesChangedMatch(path dbus.ObjectPath) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(dbusProperties),
		dbus.WithMatchMember("PropertiesChanged"),
	}
}

func (b *dbusBus) ManagedObjects(ctx context.Context) (managedObjects, error) {
	return getManagedObjects(ctx, b.conn)
}

func (b *dbusBus) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...any) error {
	return b.conn.Object(bluezService, path).CallWithContext(ctx, method, 0, args...).Err
}

func (b *dbusBus) Property(path dbus.ObjectPath, name string) (dbus.Variant, error) {
	v, err := b.conn.Object(bluezService, path).GetProperty(name)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, nil
}

func (b *dbusBus) Watch(path dbus.ObjectPath) error {
	if err := b.conn.AddMatchSignal(propertiesChangedMatch(path)...); err != nil {
		return fmt.Errorf("failed to add match for PropertiesChanged: %w", err)
	}
	return nil
}

func (b *dbusBus) Unwatch(path dbus.ObjectPath) error {
	if err := b.conn.RemoveMatchSignal(propertiesChangedMatch(path)...); err != nil {
		return fmt.Errorf("failed to remove match for PropertiesChanged: %w", err)
	}
	return nil
}

// gattLink is a connected device with notifications running.
type gattLink struct {
	name       string
	devicePath dbus.ObjectPath
	target     gattTarget
}

// attach connects the device, resolves a profile and starts notifications.
// Any failure after the device connects disconnects it again, so BlueZ is
// never left holding a half set up link.
func attach(ctx context.Context, bus systemBus, address string, profiles []Profile) (gattLink, error) {
	objects, err := bus.ManagedObjects(ctx)
	if err != nil {
		return gattLink{}, err
	}

	devicePath, err := devicePathFor(firstAdapter(objects), address)
	if err != nil {
		return gattLink{}, err
	}
	if _, ok := objects[devicePath][bluezDevice]; !ok {
		return gattLink{}, fmt.Errorf("device %s is unknown to BlueZ, scan for it first", address)
	}

	if err := bus.Call(ctx, devicePath, bluezDevice+".Connect"); err != nil {
		return gattLink{}, fmt.Errorf("failed to connect device: %w", err)
	}

	var watched []dbus.ObjectPath
	link, err := setupLink(ctx, bus, devicePath, profiles, &watched)
	if err != nil {
		detach(bus, devicePath, watched)
		return gattLink{}, err
	}
	if link.name == "" {
		link.name = address
	}
	return link, nil
}

func setupLink(
	ctx context.Context,
	bus systemBus,
	devicePath dbus.ObjectPath,
	profiles []Profile,
	watched *[]dbus.ObjectPath,
) (gattLink, error) {
	if err := waitServicesResolved(ctx, bus, devicePath); err != nil {
		return gattLink{}, err
	}

	objects, err := bus.ManagedObjects(ctx)
	if err != nil {
		return gattLink{}, err
	}
	target, err := selectProfile(objects, devicePath, profiles)
	if err != nil {
		return gattLink{}, err
	}

	for _, path := range []dbus.ObjectPath{target.notifyPath, devicePath} {
		if err := bus.Watch(path); err != nil {
			return gattLink{}, err
		}
		*watched = append(*watched, path)
	}

	if err := bus.Call(ctx, target.notifyPath, bluezGattChar+".StartNotify"); err != nil {
		return gattLink{}, fmt.Errorf("failed to start notifications: %w", err)
	}

	return gattLink{
		name:       variantString(objects[devicePath][bluezDevice], "Name"),
		devicePath: devicePath,
		target:     target,
	}, nil
}

// detach drops signal matches and disconnects the device. It uses its own
// deadline since the connect context has usually expired by now.
func detach(bus systemBus, devicePath dbus.ObjectPath, watched []dbus.ObjectPath) {
	for _, path := range watched {
		if err := bus.Unwatch(path); err != nil {
			log.Debug().Err(err).Str("path", string(path)).Msg("failed to remove signal match")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := bus.Call(ctx, devicePath, bluezDevice+".Disconnect"); err != nil {
		log.Warn().Err(err).Str("device", string(devicePath)).Msg("failed to disconnect device")
	}
}

func connectPeer(ctx context.Context, conn *dbus.Conn, address string, profiles []Profile) (*bluezPeer, error) {
	bus := &dbusBus{conn: conn}
	signals := make(chan *dbus.Signal, 32)
	conn.Signal(signals)

	link, err := attach(ctx, bus, address, profiles)
	if err != nil {
		conn.RemoveSignal(signals)
		return nil, err
	}

	p := &bluezPeer{
		bus:      bus,
		link:     link,
		signals:  signals,
		payloads: make(chan []byte, 32),
		stop:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.listen()

	log.Debug().
		Str("device", string(link.devicePath)).
		Str("notify", string(link.target.notifyPath)).
		Str("write", string(link.target.writePath)).
		Msg("resolved GATT characteristics")

	return p, nil
}

func waitServicesResolved(ctx context.Context, bus systemBus, devicePath dbus.ObjectPath) error {
	ticker := time.NewTicker(resolvePollInterval)
	defer ticker.Stop()

	for {
		v, err := bus.Property(devicePath, bluezDevice+".ServicesResolved")
		if err == nil {
			if resolved, ok := v.Value().(bool); ok && resolved {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out resolving GATT services: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

type bluezPeer struct {
	bus      *dbusBus
	signals  chan *dbus.Signal
	payloads chan []byte
	stop     chan struct{}
	link     gattLink
	wg       sync.WaitGroup
	writeMu  syncutil.Mutex
	stopOnce sync.Once
}

func (p *bluezPeer) Payloads() <-chan []byte { return p.payloads }
func (p *bluezPeer) Profile() Profile        { return p.link.target.profile }
func (p *bluezPeer) Name() string            { return p.link.name }

func (p *bluezPeer) listen() {
	defer p.wg.Done()
	defer close(p.payloads)

	for {
		select {
		case <-p.stop:
			return
		case sig, ok := <-p.signals:
			if !ok || sig == nil {
				return
			}
			switch sig.Path {
			case p.link.target.notifyPath:
				value, ok := notificationValue(sig)
				if !ok {
					continue
				}
				select {
				case p.payloads <- value:
				case <-p.stop:
					return
				}
			case p.link.devicePath:
				if deviceDisconnected(sig) {
					log.Debug().Str("device", string(p.link.devicePath)).Msg("device reported disconnect")
					return
				}
			}
		}
	}
}

func (p *bluezPeer) Write(b []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.bus.Call(ctx, p.link.target.writePath, bluezGattChar+".WriteValue", b, map[string]dbus.Variant{})
	if err != nil {
		return fmt.Errorf("failed to write characteristic: %w", err)
	}
	return nil
}

func (p *bluezPeer) Close() error {
	var errs []error
	p.stopOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
		p.bus.conn.RemoveSignal(p.signals)

		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()

		if err := p.bus.Call(ctx, p.link.target.notifyPath, bluezGattChar+".StopNotify"); err != nil {
			log.Debug().Err(err).Msg("failed to stop notifications")
		}
		if err := p.bus.Call(ctx, p.link.devicePath, bluezDevice+".Disconnect"); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect device: %w", err))
		}
		if err := p.bus.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close D-Bus connection: %w", err))
		}
	})
	return errors.Join(errs...)
}
