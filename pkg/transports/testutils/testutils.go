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

// Package testutils provides helpers for transport tests.
package testutils

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/stretchr/testify/require"
)

func CreateTestLineChannel(_ *testing.T) chan transports.Line {
	return make(chan transports.Line, 10)
}

// AssertLineReceived waits for a line and fails the test on timeout.
func AssertLineReceived(t *testing.T, ch chan transports.Line, timeout time.Duration) transports.Line {
	t.Helper()
	select {
	case l := <-ch:
		return l
	case <-time.After(timeout):
		require.Fail(t, "expected line to be received within timeout", "timeout: %v", timeout)
		return transports.Line{}
	}
}

// AssertNoLine fails the test if a line arrives within the timeout.
func AssertNoLine(t *testing.T, ch chan transports.Line, timeout time.Duration) {
	t.Helper()
	select {
	case l := <-ch:
		require.Fail(t, "unexpected line received",
			"line: source=%s, text=%q, err=%v, closed=%v",
			l.Source, l.Text, l.Error, l.Closed)
	case <-time.After(timeout):
	}
}

// CollectTexts reads n text lines, failing on timeout.
func CollectTexts(t *testing.T, ch chan transports.Line, n int, timeout time.Duration) []string {
	t.Helper()
	out := make([]string, 0, n)
	for range n {
		out = append(out, AssertLineReceived(t, ch, timeout).Text)
	}
	return out
}

// CreateTempDevicePath returns a path that passes the serial transport's
// existence check. Windows skips the check, so any COM name works there.
func CreateTempDevicePath(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		return "COM1"
	}

	f, err := os.CreateTemp(t.TempDir(), "device-test-*")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}
