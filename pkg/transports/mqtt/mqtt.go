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

// Package mqtt receives blink detector lines relayed through an MQTT broker,
// for detectors that publish over Wi-Fi instead of a direct link.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/blinktalk/blinktalk-core/pkg/transports/lines"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	DriverID = "mqtt"
	// CommandSuffix is appended to the line topic for host to device
	// commands.
	CommandSuffix = "/cmd"
	connectWait   = 5 * time.Second
)

type Transport struct {
	client        mqtt.Client
	clientFactory ClientFactory
	out           chan<- transports.Line
	done          chan struct{}
	device        config.TransportConnect
	broker        string
	topic         string
	mu            syncutil.RWMutex
}

func NewTransport(_ *config.Instance) *Transport {
	return &Transport{
		clientFactory: DefaultClientFactory,
	}
}

func (*Transport) Metadata() transports.DriverMetadata {
	return transports.DriverMetadata{
		ID:                DriverID,
		Description:       "MQTT relayed blink detector",
		DefaultAutoDetect: false,
	}
}

func (*Transport) IDs() []string {
	return []string{DriverID}
}

func (t *Transport) Open(
	ctx context.Context,
	device config.TransportConnect,
	out chan<- transports.Line,
) error {
	if !slices.Contains(t.IDs(), device.Driver) {
		return errors.New("invalid transport id: " + device.Driver)
	}

	broker, topic, err := ParseMQTTPath(device.Path)
	if err != nil {
		return fmt.Errorf("failed to parse MQTT path: %w", err)
	}

	done := make(chan struct{})

	t.mu.Lock()
	t.device = device
	t.broker = broker
	t.topic = topic
	t.out = out
	t.done = done
	t.mu.Unlock()

	opts := NewClientOptions(brokerURL(device.Path, broker), "blinktalk-line-")
	// lines must reach the decoder in publish order, and a dropped link
	// ends the session instead of silently resuming
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(false)

	opts.OnConnect = func(client mqtt.Client) {
		log.Info().Msgf("mqtt transport: connected to %s", broker)

		token := client.Subscribe(topic, 1, t.createMessageHandler(done))
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Msgf("mqtt transport: failed to subscribe to %s", topic)
			t.fail(done, fmt.Errorf("failed to subscribe to topic: %w", token.Error()))
			return
		}
		log.Info().Msgf("mqtt transport: subscribed to topic %s", topic)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt transport: connection lost")
		t.emit(done, transports.Line{Closed: true})
		if closeErr := t.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("mqtt transport: failed to close")
		}
	}

	client := t.clientFactory(opts)

	wait := connectWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = min(wait, time.Until(deadline))
	}

	token := client.Connect()
	if !token.WaitTimeout(wait) {
		client.Disconnect(0)
		t.clearDone(done)
		return errors.New("failed to connect to MQTT broker: connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		t.clearDone(done)
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	t.mu.Lock()
	if t.done != done {
		t.mu.Unlock()
		client.Disconnect(0)
		return errors.New("mqtt transport closed while connecting")
	}
	t.client = client
	t.mu.Unlock()

	log.Info().Msgf("mqtt transport: opened connection to %s (topic: %s)", broker, topic)
	return nil
}

func (t *Transport) clearDone(done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == done {
		close(done)
		t.done = nil
	}
}

func (t *Transport) emit(done <-chan struct{}, l transports.Line) bool {
	t.mu.RLock()
	out := t.out
	source := t.device.ConnectionString()
	t.mu.RUnlock()

	if out == nil {
		return false
	}
	l.Source = source
	l.Time = time.Now()
	return transports.Emit(done, out, l)
}

func (t *Transport) fail(done <-chan struct{}, err error) {
	t.emit(done, transports.Line{Error: err})
	if closeErr := t.Close(); closeErr != nil {
		log.Error().Err(closeErr).Msg("mqtt transport: failed to close")
	}
}

// createMessageHandler splits every message into lines. Nothing is carried
// over between messages.
func (t *Transport) createMessageHandler(done <-chan struct{}) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		for _, text := range lines.SplitPayload(msg.Payload()) {
			if !t.emit(done, transports.Line{Text: text}) {
				return
			}
		}
	}
}

func (t *Transport) Close() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	t.mu.Unlock()

	if client != nil && client.IsConnected() {
		log.Debug().Msg("mqtt transport: disconnecting")
		client.Disconnect(250)
	}
	return nil
}

func (*Transport) Detect(_ []string) string {
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
	return t.client != nil && t.client.IsConnected()
}

func (t *Transport) Info() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fmt.Sprintf("MQTT: %s/%s", t.broker, t.topic)
}

// Send publishes the command on the command topic.
func (t *Transport) Send(cmd transports.Command) error {
	t.mu.RLock()
	client := t.client
	topic := t.topic
	t.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return transports.ErrNotConnected
	}

	token := client.Publish(topic+CommandSuffix, 1, false, cmd.Wire())
	if !token.WaitTimeout(connectWait) {
		return fmt.Errorf("timed out publishing command %s", cmd)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish command %s: %w", cmd, err)
	}
	return nil
}
