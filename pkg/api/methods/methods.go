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

// Package methods implements the API calls shared by the REST routes and the
// websocket.
package methods

import (
	"context"
	"errors"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/api/validation"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
)

const (
	MethodState          = "state"
	MethodManual         = "manual"
	MethodClear          = "clear"
	MethodSave           = "save"
	MethodCommand        = "command"
	MethodConnect        = "connect"
	MethodDisconnect     = "disconnect"
	MethodDevices        = "devices"
	MethodMessages       = "messages"
	MethodMessagesDelete = "messages.delete"
	MethodMessagesClear  = "messages.clear"
	MethodSettings       = "settings"
)

var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrNothingToSave = errors.New("nothing to save")
	ErrStoreDisabled = errors.New("message store not available")
)

// Session is the running decoder session the API drives.
type Session interface {
	Status() *models.TransportStatus
	Snapshot() interpreter.State
	Display() interpreter.DisplayUpdate
	AutoSave() bool
	Settings() models.SettingsResponse
	ManualEntry(input string) string
	Clear()
	Save(ctx context.Context, text string, translated bool, language string) (string, error)
	SendCommand(cmd transports.Command) error
	Connect(ctx context.Context, conn config.TransportConnect) error
	Disconnect() error
	DriverIDs() []string
	Devices(ctx context.Context) []models.DeviceEntry
}

// MessageStore is the part of the message database the API exposes.
type MessageStore interface {
	ListMessages(ctx context.Context, limit int) ([]database.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ClearMessages(ctx context.Context) (int64, error)
}

type Env struct {
	Context  context.Context
	Session  Session
	Messages MessageStore
	Params   []byte
}

func (env Env) validationContext() *validation.Context {
	return validation.NewContext(env.Session.DriverIDs())
}

type Handler func(env Env) (any, error)

// NoContent is returned by calls with no result body.
type NoContent struct{}

// Methods maps method names to handlers.
var Methods = map[string]Handler{
	MethodState:          HandleState,
	MethodManual:         HandleManual,
	MethodClear:          HandleClear,
	MethodSave:           HandleSave,
	MethodCommand:        HandleCommand,
	MethodConnect:        HandleConnect,
	MethodDisconnect:     HandleDisconnect,
	MethodDevices:        HandleDevices,
	MethodMessages:       HandleMessages,
	MethodMessagesDelete: HandleDeleteMessage,
	MethodMessagesClear:  HandleClearMessages,
	MethodSettings:       HandleSettings,
}

// Dispatch runs the named method.
func Dispatch(method string, env Env) (any, error) {
	h, ok := Methods[method]
	if !ok {
		return nil, ErrUnknownMethod
	}
	return h(env)
}
