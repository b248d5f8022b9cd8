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

// Package service runs the blinktalk session: the decoder, the active
// transport, the message store and the outward API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/blinktalk/blinktalk-core/pkg/api"
	"github.com/blinktalk/blinktalk-core/pkg/api/methods"
	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/api/notifications"
	"github.com/blinktalk/blinktalk-core/pkg/audio"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/database/messagedb"
	"github.com/blinktalk/blinktalk-core/pkg/service/broker"
	"github.com/blinktalk/blinktalk-core/pkg/service/discovery"
	"github.com/blinktalk/blinktalk-core/pkg/service/publishers"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	notificationBuffer = 256
	apiSubBuffer       = 128
	publisherSubBuffer = 64
	feedbackSubBuffer  = 64
)

type Options struct {
	// DataDir holds the message database.
	DataDir string
	// Listener overrides the API listener. When nil the configured port is
	// used.
	Listener net.Listener
	// Drivers overrides the built-in transports.
	Drivers []DriverFactory
	// Player overrides the audio output used for sidetone and cues.
	Player audio.Player
}

// Run starts every component and blocks until ctx is done or one of them
// fails. A message database that cannot be opened disables saving but
// does not stop the service.
func Run(ctx context.Context, cfg *config.Instance, opts Options) error {
	log.Info().Str("version", config.AppVersion).Msg("starting blinktalk service")

	var (
		store    MessageStore
		messages methods.MessageStore
	)
	db, err := messagedb.OpenMessageDB(ctx, opts.DataDir)
	if err != nil {
		log.Error().Err(err).Msg("message store unavailable, saving disabled")
	} else {
		store = db
		messages = db
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing message store")
			}
		}()
	}

	ns := make(chan models.Notification, notificationBuffer)
	b := broker.NewBroker(ns)

	var sessionOpts []SessionOption
	if len(opts.Drivers) > 0 {
		sessionOpts = append(sessionOpts, WithDrivers(opts.Drivers...))
	}
	session := NewSession(cfg, store, ns, sessionOpts...)
	server := api.NewServer(cfg, session, messages)

	apiSub := b.Subscribe(apiSubBuffer)
	feedbackSub := b.Subscribe(feedbackSubBuffer)
	player := opts.Player
	if player == nil {
		player = audio.NewMalgoPlayer()
	}
	feedback := NewFeedback(cfg, player, opts.DataDir)
	var pubSubs []*broker.Subscription
	var pubs []*publishers.MQTTPublisher
	for _, pc := range cfg.MQTTPublishers() {
		p := publishers.NewMQTTPublisher(pc)
		if err := p.Connect(); err != nil {
			log.Error().Err(err).Str("broker", pc.Broker).Msg("mqtt publisher disabled")
			continue
		}
		pubs = append(pubs, p)
		pubSubs = append(pubSubs, b.Subscribe(publisherSubBuffer))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	g.Go(func() error {
		if opts.Listener != nil {
			return server.ServeListener(gctx, opts.Listener, apiSub.C)
		}
		return server.Serve(gctx, apiSub.C)
	})
	for i, p := range pubs {
		g.Go(func() error {
			return p.Run(gctx, pubSubs[i].C)
		})
	}
	g.Go(func() error {
		return feedback.Run(gctx, feedbackSub.C)
	})
	g.Go(func() error {
		return discovery.New(cfg, apiPort(cfg, opts.Listener)).Run(gctx)
	})
	g.Go(func() error {
		err := cfg.Watch(gctx, func() {
			notifications.SettingsReloaded(ns, session.Settings())
		})
		if err != nil {
			log.Warn().Err(err).Msg("config changes will not be picked up")
		}
		return nil
	})
	g.Go(func() error {
		if !cfg.AutoConnect() {
			return nil
		}
		if err := session.AutoConnect(gctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("auto-connect found no device")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing transport")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}
	log.Info().Msg("blinktalk service stopped")
	return nil
}

func apiPort(cfg *config.Instance, ln net.Listener) int {
	if ln != nil {
		if addr, ok := ln.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return cfg.APIPort()
}
