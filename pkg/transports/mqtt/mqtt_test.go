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

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/blinktalk/blinktalk-core/pkg/transports/testutils"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedOpts struct {
	opts *mqtt.ClientOptions
}

func openMock(t *testing.T, client *mockMQTTClient, path string) (*Transport, chan transports.Line, *capturedOpts) {
	t.Helper()

	captured := &capturedOpts{}
	tr := NewTransport(&config.Instance{})
	tr.clientFactory = func(opts *mqtt.ClientOptions) mqtt.Client {
		captured.opts = opts
		if opts.OnConnect != nil {
			opts.OnConnect(client)
		}
		return client
	}

	ch := testutils.CreateTestLineChannel(t)
	err := tr.Open(context.Background(), config.TransportConnect{Driver: DriverID, Path: path}, ch)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, ch, captured
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	tr := &Transport{}
	assert.Equal(t, "mqtt", tr.Metadata().ID)
	assert.False(t, tr.Metadata().DefaultAutoDetect)
	assert.Equal(t, []string{"mqtt"}, tr.IDs())
	assert.Empty(t, tr.Detect(nil), "MQTT does not support auto-detection")
}

func TestOpen_InvalidPath(t *testing.T) {
	t.Parallel()

	tr := NewTransport(&config.Instance{})
	err := tr.Open(context.Background(), config.TransportConnect{Driver: DriverID, Path: "localhost:1883"},
		testutils.CreateTestLineChannel(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic is required")
}

func TestOpen_ConnectError(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.connectError = errors.New("connection refused")

	tr := NewTransport(&config.Instance{})
	tr.clientFactory = func(_ *mqtt.ClientOptions) mqtt.Client { return client }

	err := tr.Open(context.Background(), config.TransportConnect{Driver: DriverID, Path: "localhost:1883/blink"},
		testutils.CreateTestLineChannel(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, client.disconnectCalls)
	assert.False(t, tr.Connected())
}

func TestOpen_SubscribesAndOrdersMessages(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	tr, _, captured := openMock(t, client, "localhost:1883/blink/lines")

	assert.True(t, tr.Connected())
	assert.Equal(t, "blink/lines", client.subscribedTopic)
	assert.Equal(t, "mqtt:localhost:1883/blink/lines", tr.Device())
	assert.Equal(t, "MQTT: localhost:1883/blink/lines", tr.Info())

	reader := mqtt.NewOptionsReader(captured.opts)
	assert.True(t, reader.Order(), "messages must be handled in order")
	assert.False(t, reader.AutoReconnect())
}

func TestMessageHandler_SplitsPayload(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	_, ch, _ := openMock(t, client, "localhost:1883/blink")

	client.deliver(".-\nLETTER\n")
	client.deliver("")
	client.deliver("  /  ")

	texts := testutils.CollectTexts(t, ch, 3, 500*time.Millisecond)
	assert.Equal(t, []string{".-", "LETTER", "/"}, texts)

	testutils.AssertNoLine(t, ch, 50*time.Millisecond)
}

func TestConnectionLost_EmitsClosed(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	tr, ch, captured := openMock(t, client, "localhost:1883/blink")

	client.Disconnect(0)
	captured.opts.OnConnectionLost(client, errors.New("broker went away"))

	end := testutils.AssertLineReceived(t, ch, 500*time.Millisecond)
	assert.True(t, end.Closed)
	assert.False(t, tr.Connected())

	client.deliver(".\n")
	testutils.AssertNoLine(t, ch, 50*time.Millisecond)
}

func TestSubscribeError_EmitsError(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.subscribeError = errors.New("not authorized")

	tr := NewTransport(&config.Instance{})
	tr.clientFactory = func(opts *mqtt.ClientOptions) mqtt.Client {
		go opts.OnConnect(client)
		return client
	}

	ch := testutils.CreateTestLineChannel(t)
	err := tr.Open(context.Background(), config.TransportConnect{Driver: DriverID, Path: "localhost:1883/blink"}, ch)
	if err != nil {
		// OnConnect can fail before Open finishes
		assert.Contains(t, err.Error(), "closed while connecting")
		return
	}

	l := testutils.AssertLineReceived(t, ch, 500*time.Millisecond)
	require.Error(t, l.Error)
	assert.Contains(t, l.Error.Error(), "not authorized")
	assert.Eventually(t, func() bool { return !tr.Connected() }, time.Second, 10*time.Millisecond)
}

func TestSend(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	tr, _, _ := openMock(t, client, "localhost:1883/blink")

	require.NoError(t, tr.Send(transports.CommandStatus))

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.published, 1)
	assert.Equal(t, "blink/cmd", client.published[0].topic)
	assert.Equal(t, []byte("STATUS\n"), client.published[0].payload)
}

func TestSend_NotConnected(t *testing.T) {
	t.Parallel()

	tr := NewTransport(&config.Instance{})
	require.ErrorIs(t, tr.Send(transports.CommandPing), transports.ErrNotConnected)
}
