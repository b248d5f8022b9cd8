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
	"github.com/rs/zerolog/log"
)

func HandleSettings(env Env) (any, error) {
	return env.Session.Settings(), nil
}

func HandleState(env Env) (any, error) {
	display := env.Session.Display()
	return models.StateResponse{
		Transport: env.Session.Status(),
		State:     env.Session.Snapshot(),
		Display:   display.Display,
		AutoSave:  env.Session.AutoSave(),
	}, nil
}

func HandleManual(env Env) (any, error) {
	var params models.ManualParams
	if err := validation.DecodeAndValidate(env.Context, env.Params, &params, nil); err != nil {
		return nil, err
	}

	appended := env.Session.ManualEntry(params.Input)
	log.Debug().Str("input", params.Input).Str("appended", appended).Msg("manual entry")

	return models.ManualResponse{
		Appended: appended,
		State:    env.Session.Snapshot(),
	}, nil
}

func HandleClear(env Env) (any, error) {
	env.Session.Clear()
	return NoContent{}, nil
}

// HandleSave stores the given text, or the current transcript when no body
// or no text is sent.
func HandleSave(env Env) (any, error) {
	var params models.SaveParams
	if len(strings.TrimSpace(string(env.Params))) > 0 {
		if err := validation.DecodeAndValidate(env.Context, env.Params, &params, nil); err != nil {
			return nil, err
		}
	}

	text := params.Text
	if strings.TrimSpace(text) == "" {
		text = env.Session.Snapshot().DecodedText
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToSave
	}

	id, err := env.Session.Save(env.Context, text, params.Translated, params.Language)
	if err != nil {
		return nil, err
	}
	return models.SaveResponse{ID: id}, nil
}
