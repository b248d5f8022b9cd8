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

package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientFactory creates a paho client, swapped out in tests.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

func DefaultClientFactory(opts *mqtt.ClientOptions) mqtt.Client {
	return mqtt.NewClient(opts)
}

// ParseMQTTPath splits a "broker:port/topic" connection path.
//
// Examples:
//   - "localhost:1883/blinktalk/lines" -> ("localhost:1883", "blinktalk/lines")
//   - "mqtts://broker.lan:8883/eye" -> ("broker.lan:8883", "eye")
func ParseMQTTPath(path string) (broker, topic string, err error) {
	if path == "" {
		return "", "", errors.New("path cannot be empty")
	}

	urlStr := path
	if !strings.Contains(path, "://") {
		urlStr = "mqtt://" + path
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse MQTT URL: %w", err)
	}
	if u.Host == "" {
		return "", "", errors.New("broker address (host:port) is required")
	}

	topic = strings.TrimLeft(u.Path, "/")
	if topic == "" {
		return "", "", errors.New("topic is required")
	}

	return u.Host, topic, nil
}

// ProtocolInfo is the transport half of an MQTT broker URL.
type ProtocolInfo struct {
	Protocol  string
	Scheme    string
	Remainder string
	UseTLS    bool
}

// ParseProtocol maps mqtt/mqtts/tcp/ssl schemes onto the paho protocol.
func ParseProtocol(urlStr string) ProtocolInfo {
	info := ProtocolInfo{
		Protocol:  "tcp",
		Remainder: urlStr,
	}

	scheme, rest, ok := strings.Cut(urlStr, "://")
	if !ok {
		return info
	}
	info.Scheme = scheme
	info.Remainder = rest
	if scheme == "mqtts" || scheme == "ssl" {
		info.Protocol = "ssl"
		info.UseTLS = true
	}
	return info
}

// NewClientOptions builds paho options for a broker, applying credentials
// from auth.toml and TLS for secure schemes.
func NewClientOptions(brokerURL, clientIDPrefix string) *mqtt.ClientOptions {
	info := ParseProtocol(brokerURL)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s", info.Protocol, info.Remainder))
	opts.SetClientID(clientIDPrefix + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	creds := config.LookupAuth(config.GetAuthCfg(), brokerURL)
	if creds != nil && creds.Username != "" {
		opts.SetUsername(creds.Username)
		opts.SetPassword(creds.Password)
		log.Debug().Msgf("mqtt: using authentication for %s", info.Remainder)
	}

	if info.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
		log.Debug().Msgf("mqtt: using TLS for %s", info.Remainder)
	}

	return opts
}

// brokerURL keeps an explicit scheme from the connection path so TLS
// settings survive.
func brokerURL(path, broker string) string {
	if scheme, _, ok := strings.Cut(path, "://"); ok {
		return scheme + "://" + broker
	}
	return broker
}
