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

import (
	"net/url"
	"strings"
)

type Auth struct {
	Creds map[string]CredentialEntry `toml:"creds,omitempty"`
}

type CredentialEntry struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// schemeAliases maps protocol variants to the scheme used in auth.toml.
var schemeAliases = map[string]string{
	"tcp": "mqtt",
	"ssl": "mqtts",
}

// LookupAuth finds credentials for a broker URL. Entries match on scheme
// (after aliasing) and host. A URL without a scheme is treated as mqtt.
func LookupAuth(auth Auth, rawURL string) *CredentialEntry {
	target, ok := authKey(rawURL)
	if !ok {
		return nil
	}
	for k, v := range auth.Creds {
		key, ok := authKey(k)
		if !ok || key != target {
			continue
		}
		entry := v
		return &entry
	}
	return nil
}

func authKey(rawURL string) (string, bool) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "mqtt://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if alias, ok := schemeAliases[scheme]; ok {
		scheme = alias
	}
	return scheme + "://" + strings.ToLower(u.Host), true
}
