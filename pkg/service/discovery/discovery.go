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

// Package discovery advertises the API over mDNS so phones and other
// clients on the network can find a detector host without an address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const ServiceType = "_blinktalk._tcp"

const (
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

// Container and VPN interfaces that never reach the local network.
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

// filterInterfaces keeps interfaces that are up, multicast capable and not
// loopback or virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

type shutdowner interface {
	Shutdown()
}

type registerFunc func(instance string, port int, txt []string, ifaces []net.Interface) (shutdowner, error)

func zeroconfRegister(instance string, port int, txt []string, ifaces []net.Interface) (shutdowner, error) {
	server, err := zeroconf.Register(instance, ServiceType, "local.", port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return server, nil
}

type Advertiser struct {
	cfg        *config.Instance
	clock      clockwork.Clock
	register   registerFunc
	interfaces func() ([]net.Interface, error)
	port       int
}

// New returns an advertiser for the API listening on port.
func New(cfg *config.Instance, port int) *Advertiser {
	return &Advertiser{
		cfg:        cfg,
		port:       port,
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
	}
}

// Run advertises until ctx is done. When the network isn't ready yet
// registration is retried for a few minutes, then given up on. Discovery
// failing never stops the service.
func (a *Advertiser) Run(ctx context.Context) error {
	if !a.cfg.DiscoveryEnabled() {
		log.Info().Msg("mDNS discovery disabled by configuration")
		return nil
	}

	instance := a.instanceName()
	server := a.tryRegister(instance)
	if server == nil {
		log.Info().
			Dur("retryInterval", retryInterval).
			Msg("mDNS registration failed, retrying in background")
		server = a.retry(ctx, instance)
	}
	if server == nil {
		return nil
	}

	<-ctx.Done()
	log.Debug().Msg("stopping mDNS advertising")
	server.Shutdown()
	return nil
}

func (a *Advertiser) retry(ctx context.Context, instance string) shutdowner {
	deadline := a.clock.After(maxRetryDuration)
	ticker := a.clock.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			log.Warn().Msg("mDNS registration timed out, discovery unavailable")
			return nil
		case <-ticker.Chan():
			if server := a.tryRegister(instance); server != nil {
				return server
			}
		}
	}
}

func (a *Advertiser) tryRegister(instance string) shutdowner {
	all, err := a.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list network interfaces")
		return nil
	}
	ifaces := filterInterfaces(all)
	if len(ifaces) == 0 {
		log.Debug().Msg("no network interfaces suitable for mDNS")
		return nil
	}

	txt := []string{
		"id=" + a.cfg.DeviceID(),
		"version=" + config.AppVersion,
		"path=/api/ws",
	}

	server, err := a.register(instance, a.port, txt, ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return nil
	}

	log.Info().
		Str("instance", instance).
		Int("port", a.port).
		Str("type", ServiceType).
		Msg("mDNS advertising started")
	return server
}

// instanceName prefers the configured name, then the hostname.
func (a *Advertiser) instanceName() string {
	if name := a.cfg.DiscoveryInstanceName(); name != "" {
		return name
	}

	hostname, err := os.Hostname()
	if err == nil && hostname != "" {
		return hostname
	}
	log.Warn().Err(err).Msg("failed to get hostname, using fallback")

	if id := a.cfg.DeviceID(); len(id) >= 8 {
		return config.AppName + "-" + id[:8]
	}
	return config.AppName
}
