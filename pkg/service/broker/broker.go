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

// Package broker fans the service notification queue out to every consumer:
// websocket clients, MQTT publishers and the CLI watch mode.
package broker

import (
	"context"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Subscription is one consumer's view of the notification stream. C is
// closed when the subscription is cancelled or the broker stops.
type Subscription struct {
	C       <-chan models.Notification
	broker  *Broker
	ch      chan models.Notification
	id      int
	dropped int
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.broker.remove(s.id)
}

// Dropped returns how many notifications this subscriber missed because its
// buffer was full.
func (s *Subscription) Dropped() int {
	s.broker.mu.RLock()
	defer s.broker.mu.RUnlock()
	return s.dropped
}

type Broker struct {
	source  <-chan models.Notification
	subs    map[int]*Subscription
	mu      syncutil.RWMutex
	nextID  int
	stopped bool
}

func NewBroker(source <-chan models.Notification) *Broker {
	return &Broker{
		source: source,
		subs:   make(map[int]*Subscription),
	}
}

// Run forwards notifications until ctx is done or the source closes. Every
// subscription is closed on return.
func (b *Broker) Run(ctx context.Context) error {
	defer b.stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("broker: context done")
			return nil
		case n, ok := <-b.source:
			if !ok {
				log.Debug().Msg("broker: source closed")
				return nil
			}
			b.publish(n)
		}
	}
}

// publish never blocks. A subscriber whose buffer is full misses the
// notification.
func (b *Broker) publish(n models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.ch <- n:
		default:
			sub.dropped++
			log.Warn().
				Int("subscriber", id).
				Str("method", n.Method).
				Msg("subscriber buffer full, dropping notification")
		}
	}
}

// Subscribe registers a consumer with the given buffer size. Subscribing to a
// stopped broker returns an already closed channel.
func (b *Broker) Subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Notification, buffer)
	sub := &Subscription{C: ch, ch: ch, broker: b, id: b.nextID}
	b.nextID++

	if b.stopped {
		close(ch)
		return sub
	}

	b.subs[sub.id] = sub
	log.Debug().Int("subscriber", sub.id).Int("buffer", buffer).Msg("broker: subscribed")
	return sub
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
		log.Debug().Int("subscriber", id).Msg("broker: unsubscribed")
	}
}

func (b *Broker) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
