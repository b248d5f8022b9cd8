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
	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/blinktalk/blinktalk-core/pkg/database/messagedb"
)

func HandleMessages(env Env) (any, error) {
	if env.Messages == nil {
		return nil, ErrStoreDisabled
	}

	params := models.MessagesParams{Limit: messagedb.DefaultListLimit}
	if len(strings.TrimSpace(string(env.Params))) > 0 {
		if err := validation.DecodeAndValidate(env.Context, env.Params, &params, nil); err != nil {
			return nil, err
		}
	}
	if params.Limit == 0 {
		params.Limit = messagedb.DefaultListLimit
	}

	msgs, err := env.Messages.ListMessages(env.Context, params.Limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []database.Message{}
	}
	return models.MessagesResponse{Messages: msgs}, nil
}

func HandleDeleteMessage(env Env) (any, error) {
	if env.Messages == nil {
		return nil, ErrStoreDisabled
	}

	var params models.DeleteMessageParams
	if err := validation.DecodeAndValidate(env.Context, env.Params, &params, nil); err != nil {
		return nil, err
	}
	if err := env.Messages.DeleteMessage(env.Context, params.ID); err != nil {
		return nil, err
	}
	return NoContent{}, nil
}

func HandleClearMessages(env Env) (any, error) {
	if env.Messages == nil {
		return nil, ErrStoreDisabled
	}

	n, err := env.Messages.ClearMessages(env.Context)
	if err != nil {
		return nil, err
	}
	return models.ClearMessagesResponse{Deleted: n}, nil
}
