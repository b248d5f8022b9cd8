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

// Package client talks to a running blinktalk service over its websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrRequestCancelled = errors.New("request cancelled")
	ErrInvalidParams    = errors.New("invalid params")
)

const APIPath = "/api/ws"

// LocalURL returns the websocket URL of the service on this machine.
func LocalURL(cfg *config.Instance) string {
	u := url.URL{
		Scheme: "ws",
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
		Path:   APIPath,
	}
	return u.String()
}

func dial(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing websocket")
	}
}

// Call sends one method with optional JSON params and waits for its result.
// Notifications arriving in the meantime are skipped.
func Call(ctx context.Context, wsURL, method, params string) (json.RawMessage, error) {
	req := models.Request{Method: method}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return nil, ErrInvalidParams
		}
		req.Params = json.RawMessage(params)
	}
	id, err := json.Marshal(uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("failed to create request id: %w", err)
	}
	req.ID = id

	c, err := dial(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer closeConn(c)

	type result struct {
		err  error
		resp rawResponse
	}
	done := make(chan result, 1)

	go func() {
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				done <- result{err: fmt.Errorf("failed to read response: %w", err)}
				return
			}
			var resp rawResponse
			if err := json.Unmarshal(msg, &resp); err != nil || string(resp.ID) != string(id) {
				continue
			}
			done <- result{resp: resp}
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	timer := time.NewTimer(config.APIRequestTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.resp.Error != nil {
			return nil, errors.New(r.resp.Error.Error)
		}
		return r.resp.Result, nil
	case <-timer.C:
		return nil, ErrRequestTimeout
	case <-ctx.Done():
		return nil, ErrRequestCancelled
	}
}

type rawResponse struct {
	ID     json.RawMessage       `json:"id"`
	Result json.RawMessage       `json:"result"`
	Error  *models.ErrorResponse `json:"error"`
}

// Watch calls fn for every notification until ctx is done or the
// connection drops.
func Watch(ctx context.Context, wsURL string, fn func(models.Notification)) error {
	c, err := dial(ctx, wsURL)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		closeConn(c)
	})
	defer func() {
		if stop() {
			closeConn(c)
		}
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket closed: %w", err)
		}

		var n models.Notification
		if err := json.Unmarshal(msg, &n); err != nil || n.Method == "" {
			continue
		}
		fn(n)
	}
}
