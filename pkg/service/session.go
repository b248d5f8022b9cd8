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

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/api/notifications"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/rs/zerolog/log"
)

const (
	lineBuffer  = 64
	saveTimeout = 5 * time.Second
)

var (
	ErrNoTransport   = transports.ErrNotConnected
	ErrNothingToSave = errors.New("nothing to save")
)

// MessageStore persists decoded transcripts.
type MessageStore interface {
	SaveMessage(ctx context.Context, text string, translated bool, language string) (string, error)
	SaveTranslation(ctx context.Context, text, original, language string) (string, error)
}

// connection is one opened transport and the goroutine consuming its lines.
type connection struct {
	transport transports.Transport
	lines     chan transports.Line
	cancel    context.CancelFunc
	done      chan struct{}
	device    string
	driver    string
}

// Session joins the decoder to at most one transport at a time. Lines from
// the transport are applied by a single consumer goroutine in arrival order.
// Switching or dropping the transport leaves the decoded text alone.
type Session struct {
	cfg       *config.Instance
	store     MessageStore
	ns        chan<- models.Notification
	decoder   *interpreter.Session
	detector  *AutoDetector
	active    *connection
	drivers   []DriverFactory
	mu        syncutil.Mutex
	connectMu syncutil.Mutex
}

type SessionOption func(*Session)

// WithDrivers replaces the built-in transports.
func WithDrivers(drivers ...DriverFactory) SessionOption {
	return func(s *Session) {
		s.drivers = drivers
	}
}

func WithAutoDetector(ad *AutoDetector) SessionOption {
	return func(s *Session) {
		s.detector = ad
	}
}

// NewSession creates a disconnected session. store and ns may be nil, in
// which case saving fails and notifications are discarded.
func NewSession(
	cfg *config.Instance,
	store MessageStore,
	ns chan<- models.Notification,
	opts ...SessionOption,
) *Session {
	s := &Session{
		cfg:     cfg,
		store:   store,
		ns:      ns,
		drivers: DefaultDrivers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.detector == nil {
		s.detector = NewAutoDetector(nil)
	}

	s.decoder = interpreter.NewSession(cfg, interpreter.Callbacks{
		Display: func(u interpreter.DisplayUpdate) {
			notifications.DisplayUpdated(s.ns, u)
		},
		AutoSave: s.autoSave,
	})
	return s
}

// Connect opens a transport and starts consuming its lines. Any existing
// transport is disconnected first.
func (s *Session) Connect(ctx context.Context, conn config.TransportConnect) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("connect cancelled: %w", err)
	}

	if err := s.teardown(); err != nil && !errors.Is(err, ErrNoTransport) {
		log.Warn().Err(err).Msg("error closing previous transport")
	}

	t, err := newTransport(s.cfg, s.drivers, conn.Driver)
	if err != nil {
		return err
	}

	device := conn.ConnectionString()
	lines := make(chan transports.Line, lineBuffer)
	if err := t.Open(ctx, conn, lines); err != nil {
		notifications.TransportError(s.ns, device, err)
		return fmt.Errorf("failed to open %s: %w", device, err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		transport: t,
		lines:     lines,
		cancel:    cancel,
		done:      make(chan struct{}),
		device:    device,
		driver:    conn.Driver,
	}

	s.mu.Lock()
	s.active = c
	s.mu.Unlock()

	go s.consume(cctx, c)

	log.Info().Str("device", device).Str("info", t.Info()).Msg("transport connected")
	notifications.TransportConnected(s.ns, device)
	return nil
}

// Disconnect closes the active transport. No line is applied after
// Disconnect returns.
func (s *Session) Disconnect() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.teardown()
}

// Close disconnects, ignoring a missing transport.
func (s *Session) Close() error {
	if err := s.Disconnect(); err != nil && !errors.Is(err, ErrNoTransport) {
		return err
	}
	return nil
}

// teardown must be called with connectMu held.
func (s *Session) teardown() error {
	s.mu.Lock()
	c := s.active
	s.active = nil
	s.mu.Unlock()

	if c == nil {
		return ErrNoTransport
	}

	c.cancel()
	err := c.transport.Close()
	<-c.done

	log.Info().Str("device", c.device).Msg("transport disconnected")
	notifications.TransportDisconnected(s.ns, c.device)
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", c.device, err)
	}
	return nil
}

func (s *Session) consume(ctx context.Context, c *connection) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case l := <-c.lines:
			if ctx.Err() != nil {
				return
			}
			switch {
			case l.Error != nil:
				s.lost(c, l.Error)
				return
			case l.Closed:
				s.lost(c, nil)
				return
			default:
				s.decoder.ProcessLine(l.Text)
			}
		}
	}
}

// lost handles a transport that failed or went away on its own. It runs on
// the consumer goroutine. A connection already claimed by teardown is left
// to it.
func (s *Session) lost(c *connection, err error) {
	s.mu.Lock()
	owned := s.active == c
	if owned {
		s.active = nil
	}
	s.mu.Unlock()

	c.cancel()
	if !owned {
		return
	}
	if closeErr := c.transport.Close(); closeErr != nil {
		log.Debug().Err(closeErr).Msg("error closing lost transport")
	}

	if err != nil {
		log.Error().Err(err).Str("device", c.device).Msg("transport failed")
		notifications.TransportError(s.ns, c.device, err)
	} else {
		log.Warn().Str("device", c.device).Msg("transport closed by device")
	}
	notifications.TransportDisconnected(s.ns, c.device)
}

// AutoConnect tries the configured connections in order, then auto-detected
// devices. It returns ErrNoTransport when nothing could be opened.
func (s *Session) AutoConnect(ctx context.Context) error {
	candidates := s.cfg.TransportConnections()
	if s.cfg.AutoDetect() {
		candidates = append(candidates, s.detector.Candidates(s.cfg, s.drivers)...)
	}

	for _, conn := range candidates {
		if ctx.Err() != nil {
			return fmt.Errorf("auto-connect cancelled: %w", ctx.Err())
		}
		cs := conn.ConnectionString()
		if err := s.Connect(ctx, conn); err != nil {
			log.Warn().Err(err).Str("device", cs).Msg("auto-connect attempt failed")
			s.detector.MarkFailed(cs)
			continue
		}
		s.detector.ClearFailed(cs)
		return nil
	}
	return ErrNoTransport
}

// Status describes the active transport, or returns nil.
func (s *Session) Status() *models.TransportStatus {
	s.mu.Lock()
	c := s.active
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	return &models.TransportStatus{
		Driver:    c.driver,
		Device:    c.device,
		Info:      c.transport.Info(),
		Connected: c.transport.Connected(),
	}
}

// SendCommand writes a command to the active transport.
func (s *Session) SendCommand(cmd transports.Command) error {
	s.mu.Lock()
	c := s.active
	s.mu.Unlock()

	if c == nil {
		return ErrNoTransport
	}
	if err := c.transport.Send(cmd); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	log.Debug().Str("command", string(cmd)).Str("device", c.device).Msg("sent device command")
	notifications.CommandSent(s.ns, models.CommandResponse{
		Command:       string(cmd),
		ExpectedReply: cmd.Reply(),
	})
	return nil
}

// ProcessLine feeds a line directly, outside any transport.
func (s *Session) ProcessLine(line string) interpreter.LineEvent {
	return s.decoder.ProcessLine(line)
}

func (s *Session) ManualEntry(input string) string {
	return s.decoder.ManualEntry(input)
}

func (s *Session) Clear() {
	s.decoder.Clear()
	notifications.SessionCleared(s.ns)
}

func (s *Session) Snapshot() interpreter.State {
	return s.decoder.Snapshot()
}

func (s *Session) Display() interpreter.DisplayUpdate {
	return s.decoder.Display()
}

func (s *Session) AutoSave() bool {
	return s.cfg.AutoSave()
}

// Settings returns the config values the session acts on.
func (s *Session) Settings() models.SettingsResponse {
	return models.SettingsResponse{
		TargetLanguage: s.cfg.TargetLanguage(),
		AutoSave:       s.cfg.AutoSave(),
		AutoConnect:    s.cfg.AutoConnect(),
		AutoDetect:     s.cfg.AutoDetect(),
	}
}

func (s *Session) DriverIDs() []string {
	return driverIDs(s.cfg, s.drivers)
}

// Save stores text, or the current transcript when text is empty. An empty
// language means the configured target language.
func (s *Session) Save(ctx context.Context, text string, translated bool, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		text = s.decoder.Snapshot().DecodedText
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNothingToSave
	}
	if language == "" {
		language = s.cfg.TargetLanguage()
	}
	return s.save(ctx, text, translated, language, false)
}

func (s *Session) autoSave(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if _, err := s.save(ctx, text, false, s.cfg.TargetLanguage(), true); err != nil {
		log.Warn().Err(err).Msg("auto-save failed")
	}
}

func (s *Session) save(ctx context.Context, text string, translated bool, language string, auto bool) (string, error) {
	length := utf8.RuneCountInString(text)
	if s.store == nil {
		err := errors.New("message store not available")
		notifications.MessageSaveFailed(s.ns, err, length, auto)
		return "", err
	}

	var (
		id  string
		err error
	)
	if translated {
		// the transcript is what the caller translated from
		id, err = s.store.SaveTranslation(ctx, text, s.decoder.Snapshot().DecodedText, language)
	} else {
		id, err = s.store.SaveMessage(ctx, text, false, language)
	}
	if err != nil {
		notifications.MessageSaveFailed(s.ns, err, length, auto)
		return "", fmt.Errorf("failed to save message: %w", err)
	}

	log.Info().Str("id", id).Int("length", length).Bool("auto", auto).Msg("saved message")
	notifications.MessageSaved(s.ns, id, length, auto)
	return id, nil
}
