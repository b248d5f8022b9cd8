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

package methods

import (
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/api/validation"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/rs/zerolog/log"
)

func HandleCommand(env Env) (any, error) {
	var params models.CommandParams
	if err := validation.DecodeAndValidate(env.Context, env.Params, &params, nil); err != nil {
		return nil, err
	}

	cmd, err := transports.ParseCommand(params.Command)
	if err != nil {
		return nil, err
	}
	if err := env.Session.SendCommand(cmd); err != nil {
		return nil, err
	}

	return models.CommandResponse{
		Command:       string(cmd),
		ExpectedReply: cmd.Reply(),
	}, nil
}

func HandleConnect(env Env) (any, error) {
	var params models.ConnectParams
	err := validation.DecodeAndValidate(env.Context, env.Params, &params, env.validationContext())
	if err != nil {
		return nil, err
	}

	conn := config.TransportConnect{
		Driver: strings.ToLower(params.Driver),
		Path:   params.Path,
	}
	log.Info().Str("device", conn.ConnectionString()).Msg("connect requested")
	if err := env.Session.Connect(env.Context, conn); err != nil {
		return nil, err
	}

	return env.Session.Status(), nil
}

func HandleDisconnect(env Env) (any, error) {
	if err := env.Session.Disconnect(); err != nil {
		return nil, err
	}
	return NoContent{}, nil
}

func HandleDevices(env Env) (any, error) {
	devices := env.Session.Devices(env.Context)
	if devices == nil {
		devices = []models.DeviceEntry{}
	}
	return models.DevicesResponse{Devices: devices}, nil
}
