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

// Package api serves the local HTTP and websocket interface to a running
// session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/api/methods"
	apimiddleware "github.com/blinktalk/blinktalk-core/pkg/api/middleware"
	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/api/validation"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/database/messagedb"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	maxBodyBytes    = 64 * 1024
	shutdownTimeout = 5 * time.Second
)

var defaultAllowedOrigins = []string{"https://*", "http://*"}

type Server struct {
	cfg      *config.Instance
	session  methods.Session
	messages methods.MessageStore
	limiter  *apimiddleware.IPRateLimiter
	ws       *melody.Melody
	router   chi.Router
}

// NewServer builds the router. messages may be nil when the message store
// could not be opened.
func NewServer(cfg *config.Instance, session methods.Session, messages methods.MessageStore) *Server {
	s := &Server{
		cfg:      cfg,
		session:  session,
		messages: messages,
		limiter:  apimiddleware.NewIPRateLimiter(),
		ws:       melody.New(),
	}
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.ws.HandleMessage(apimiddleware.WebSocketRateLimitHandler(s.limiter, s.handleWSMessage))
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	origins := s.cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(apimiddleware.HTTPRateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(config.APIRequestTimeout))

		r.Get("/api/state", s.rest(methods.MethodState, noParams))
		r.Get("/api/settings", s.rest(methods.MethodSettings, noParams))
		r.Post("/api/manual", s.rest(methods.MethodManual, bodyParams))
		r.Post("/api/clear", s.rest(methods.MethodClear, noParams))
		r.Post("/api/save", s.rest(methods.MethodSave, bodyParams))
		r.Post("/api/command", s.rest(methods.MethodCommand, bodyParams))
		r.Post("/api/connect", s.rest(methods.MethodConnect, bodyParams))
		r.Post("/api/disconnect", s.rest(methods.MethodDisconnect, noParams))
		r.Get("/api/devices", s.rest(methods.MethodDevices, noParams))
		r.Get("/api/messages", s.rest(methods.MethodMessages, limitParams))
		r.Delete("/api/messages", s.rest(methods.MethodMessagesClear, noParams))
		r.Delete("/api/messages/{id}", s.rest(methods.MethodMessagesDelete, idParams))
	})

	return r
}

type paramsFunc func(r *http.Request) ([]byte, error)

func noParams(*http.Request) ([]byte, error) {
	return nil, nil
}

func bodyParams(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func limitParams(r *http.Request) ([]byte, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return nil, validation.ErrInvalidParams
	}
	return json.Marshal(models.MessagesParams{Limit: limit})
}

func idParams(r *http.Request) ([]byte, error) {
	return json.Marshal(models.DeleteMessageParams{ID: chi.URLParam(r, "id")})
}

func (s *Server) env(ctx context.Context, params []byte) methods.Env {
	return methods.Env{
		Context:  ctx,
		Session:  s.session,
		Messages: s.messages,
		Params:   params,
	}
}

func (s *Server) rest(method string, params paramsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := params(r)
		if err == nil {
			var result any
			result, err = methods.Dispatch(method, s.env(r.Context(), p))
			if err == nil {
				writeJSON(w, http.StatusOK, result)
				return
			}
		}

		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("method", method).Msg("api call failed")
		} else {
			log.Debug().Err(err).Str("method", method).Msg("api call rejected")
		}
		writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
	}
}

func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams),
		errors.Is(err, methods.ErrNothingToSave),
		errors.Is(err, transports.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, messagedb.ErrNotFound),
		errors.Is(err, methods.ErrUnknownMethod):
		return http.StatusNotFound
	case errors.Is(err, transports.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, methods.ErrStoreDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func (s *Server) handleWSMessage(session *melody.Session, msg []byte) {
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	var req models.Request
	if err := json.Unmarshal(msg, &req); err != nil || req.Method == "" {
		s.wsReply(session, models.Response{
			Error: &models.ErrorResponse{Error: validation.ErrInvalidParams.Error()},
		})
		return
	}

	ctx, cancel := context.WithTimeout(session.Request.Context(), config.APIRequestTimeout)
	defer cancel()

	resp := models.Response{ID: req.ID}
	result, err := methods.Dispatch(req.Method, s.env(ctx, req.Params))
	if err != nil {
		log.Debug().Err(err).Str("method", req.Method).Msg("websocket call failed")
		resp.Error = &models.ErrorResponse{Error: err.Error()}
	} else {
		resp.Result = result
	}
	s.wsReply(session, resp)
}

func (*Server) wsReply(session *melody.Session, resp models.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("marshalling websocket response")
		return
	}
	if err := session.Write(data); err != nil {
		log.Error().Err(err).Msg("sending websocket response")
	}
}

// Broadcast forwards notifications to every websocket client until ctx is
// done or the channel closes.
func (s *Server) Broadcast(ctx context.Context, notifications <-chan models.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			data, err := json.Marshal(n)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Serve listens on the configured port until ctx is done, then shuts down
// the HTTP server and closes websocket clients.
func (s *Server) Serve(ctx context.Context, notifications <-chan models.Notification) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.cfg.APIPort()))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln, notifications)
}

func (s *Server) ServeListener(
	ctx context.Context,
	ln net.Listener,
	notifications <-chan models.Notification,
) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.Broadcast(gctx, notifications)
	})
	g.Go(func() error {
		s.limiter.StartCleanup(gctx)
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.ws.Close(); err != nil {
			log.Debug().Err(err).Msg("closing websocket sessions")
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
