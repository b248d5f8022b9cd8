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

// Package tui is a terminal monitor for a running service: the pattern
// being blinked, the decoded transcript and the transport status, with
// keys to clear and save.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/api/client"
	"github.com/blinktalk/blinktalk-core/pkg/api/methods"
	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const helpText = "[::b]c[::-] clear  [::b]s[::-] save  [::b]q[::-] quit"

// CallFunc sends one API method and returns its result.
type CallFunc func(ctx context.Context, method, params string) (json.RawMessage, error)

// view is everything the monitor draws. Updated only on the UI goroutine.
type view struct {
	transport *models.TransportStatus
	display   interpreter.DisplayUpdate
	lastEvent string
}

// apply folds a notification into the view. Returns false for methods the
// monitor doesn't show.
func (v *view) apply(n models.Notification) bool {
	switch n.Method {
	case models.NotificationDisplayUpdated:
		var u interpreter.DisplayUpdate
		if err := json.Unmarshal(n.Params, &u); err != nil {
			return false
		}
		v.display = u
	case models.NotificationSessionCleared:
		v.display = interpreter.DisplayUpdate{}
		v.lastEvent = "Cleared"
	case models.NotificationTransportConnected:
		var ev models.TransportEvent
		if err := json.Unmarshal(n.Params, &ev); err != nil {
			return false
		}
		v.transport = &models.TransportStatus{Device: ev.Device, Connected: true}
		v.lastEvent = "Connected to " + ev.Device
	case models.NotificationTransportDisconnect:
		var ev models.TransportEvent
		if err := json.Unmarshal(n.Params, &ev); err != nil {
			return false
		}
		v.transport = nil
		v.lastEvent = "Disconnected from " + ev.Device
	case models.NotificationTransportError:
		var ev models.TransportEvent
		if err := json.Unmarshal(n.Params, &ev); err != nil {
			return false
		}
		v.lastEvent = "[red]Error:[-] " + tview.Escape(ev.Error)
	case models.NotificationMessagesSaved:
		var ev models.MessageSavedEvent
		if err := json.Unmarshal(n.Params, &ev); err != nil {
			return false
		}
		kind := "Saved"
		if ev.Auto {
			kind = "Auto-saved"
		}
		v.lastEvent = fmt.Sprintf("%s %d characters", kind, ev.Length)
	case models.NotificationMessagesSaveFailed:
		var ev models.MessageSavedEvent
		if err := json.Unmarshal(n.Params, &ev); err != nil {
			return false
		}
		v.lastEvent = "[red]Save failed:[-] " + tview.Escape(ev.Error)
	default:
		return false
	}
	return true
}

func (v *view) statusText() string {
	if v.transport == nil || !v.transport.Connected {
		return "[::b]Detector:[::-] not connected"
	}
	return "[::b]Detector:[::-] " + tview.Escape(v.transport.Device)
}

func (v *view) buildingText() string {
	if v.display.Display == "" {
		return "[::b]Blinking:[::-] -"
	}
	return "[::b]Blinking:[::-] " + tview.Escape(v.display.Display)
}

func (v *view) transcriptText() string {
	return tview.Escape(strings.TrimLeft(v.display.DecodedText, " "))
}

type Monitor struct {
	app        *tview.Application
	status     *tview.TextView
	building   *tview.TextView
	transcript *tview.TextView
	footer     *tview.TextView
	call       CallFunc
	v          view
}

func NewMonitor(app *tview.Application, call CallFunc) *Monitor {
	m := &Monitor{
		app:        app,
		call:       call,
		status:     tview.NewTextView().SetDynamicColors(true),
		building:   tview.NewTextView().SetDynamicColors(true),
		transcript: tview.NewTextView().SetDynamicColors(true).SetWordWrap(true),
		footer:     tview.NewTextView().SetDynamicColors(true),
	}
	m.transcript.SetBorder(true).SetTitle("Transcript")

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.status, 1, 0, false).
		AddItem(m.building, 1, 0, false).
		AddItem(m.transcript, 0, 1, false).
		AddItem(m.footer, 1, 0, false)
	root.SetBorder(true).
		SetTitle(" Blinktalk v" + config.AppVersion + " ").
		SetTitleAlign(tview.AlignCenter)

	app.SetRoot(root, true)
	app.SetInputCapture(m.handleKey)
	m.refresh()
	return m
}

func (m *Monitor) refresh() {
	m.status.SetText(m.v.statusText())
	m.building.SetText(m.v.buildingText())
	m.transcript.SetText(m.v.transcriptText())
	footer := helpText
	if m.v.lastEvent != "" {
		footer = m.v.lastEvent + "  |  " + helpText
	}
	m.footer.SetText(footer)
}

func (m *Monitor) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape, event.Rune() == 'q':
		m.app.Stop()
		return nil
	case event.Rune() == 'c':
		go m.action(methods.MethodClear, "Clear")
		return nil
	case event.Rune() == 's':
		go m.action(methods.MethodSave, "Save")
		return nil
	}
	return event
}

// action runs off the UI goroutine. Success shows up through the
// notification it triggers, so only failures are drawn here.
func (m *Monitor) action(method, label string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.APIRequestTimeout)
	defer cancel()

	if _, err := m.call(ctx, method, ""); err != nil {
		log.Warn().Err(err).Str("method", method).Msg("monitor action failed")
		m.app.QueueUpdateDraw(func() {
			m.v.lastEvent = fmt.Sprintf("[red]%s failed:[-] %s", label, tview.Escape(err.Error()))
			m.refresh()
		})
	}
}

// load fetches the current state so the monitor isn't blank until the
// first notification.
func (m *Monitor) load(ctx context.Context) error {
	resp, err := m.call(ctx, methods.MethodState, "")
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	var st models.StateResponse
	if err := json.Unmarshal(resp, &st); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}
	m.v.transport = st.Transport
	m.v.display = interpreter.DisplayUpdate{
		Building:    st.State.CurrentBuilding,
		Display:     st.Display,
		DecodedText: st.State.DecodedText,
	}
	m.refresh()
	return nil
}

// Run draws until the user quits or ctx is done.
func (m *Monitor) Run(ctx context.Context, notifications <-chan models.Notification) error {
	if err := m.load(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				m.app.Stop()
				return
			case n, ok := <-notifications:
				if !ok {
					return
				}
				m.app.QueueUpdateDraw(func() {
					if m.v.apply(n) {
						m.refresh()
					}
				})
			}
		}
	}()

	if err := m.app.Run(); err != nil {
		return fmt.Errorf("running monitor: %w", err)
	}
	return nil
}

// RunMonitor opens a monitor on the service at wsURL.
func RunMonitor(ctx context.Context, wsURL string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ns := make(chan models.Notification, 64)
	go func() {
		err := client.Watch(ctx, wsURL, func(n models.Notification) {
			select {
			case ns <- n:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Error().Err(err).Msg("monitor lost the service connection")
		}
	}()

	call := func(ctx context.Context, method, params string) (json.RawMessage, error) {
		return client.Call(ctx, wsURL, method, params)
	}
	return NewMonitor(tview.NewApplication(), call).Run(ctx, ns)
}
