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

// Package publishers mirrors service notifications to external systems.
package publishers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	mqtttransport "github.com/blinktalk/blinktalk-core/pkg/transports/mqtt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTTPublisher sends each notification to <topic>/<method> with the
// notification params as the payload.
type MQTTPublisher struct {
	client        mqtt.Client
	clientFactory mqtttransport.ClientFactory
	broker        string
	topic         string
	filter        []string
}

func NewMQTTPublisher(pub config.MQTTPublisher) *MQTTPublisher {
	return &MQTTPublisher{
		broker:        pub.Broker,
		topic:         pub.Topic,
		filter:        pub.Filter,
		clientFactory: mqtttransport.DefaultClientFactory,
	}
}

// Connect opens the broker connection. The client reconnects on its own
// after that.
func (p *MQTTPublisher) Connect() error {
	opts := mqtttransport.NewClientOptions(p.broker, "blinktalk-pub-")
	opts.SetConnectRetry(true)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", p.broker).Msg("mqtt publisher: connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", p.broker).Msg("mqtt publisher: connection lost")
	}

	p.client = p.clientFactory(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to mqtt broker %s", p.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", p.broker, err)
	}
	return nil
}

// Run publishes notifications until ctx is done or the channel closes, then
// disconnects.
func (p *MQTTPublisher) Run(ctx context.Context, notifications <-chan models.Notification) error {
	defer p.disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if !p.matches(n.Method) {
				continue
			}
			if err := p.publish(n); err != nil {
				log.Error().Err(err).Str("method", n.Method).Msg("mqtt publisher: publish failed")
			}
		}
	}
}

func (p *MQTTPublisher) publish(n models.Notification) error {
	payload := []byte(n.Params)
	if payload == nil {
		payload = []byte("null")
	}

	token := p.client.Publish(p.topic+"/"+n.Method, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	log.Trace().Str("method", n.Method).Msg("mqtt publisher: published")
	return nil
}

func (p *MQTTPublisher) disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// matches returns true for every method when no filter is set.
func (p *MQTTPublisher) matches(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
