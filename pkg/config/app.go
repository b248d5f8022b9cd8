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

package config

import "time"

const (
	AppName        = "blinktalk"
	CfgFile        = "config.toml"
	AuthFile       = "auth.toml"
	LogFile        = "blinktalk.log"
	MessagesDbFile = "messages.db"
	PidFile        = "blinktalk.pid"

	DefaultAPIPort    = 7620
	DefaultBaudRate   = 115200
	APIRequestTimeout = 30 * time.Second
)

// AppVersion is replaced at build time.
var AppVersion = "DEVELOPMENT"
