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

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/interpreter"
	"github.com/blinktalk/blinktalk-core/pkg/testing/mocks"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestConfig(t *testing.T) *config.Instance {
	t.Helper()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetAutoSave(false)
	cfg.SetAutoDetect(false)
	return cfg
}

func newMockDriver(t *testing.T, id string) (*mocks.MockTransport, DriverFactory) {
	t.Helper()

	mt := mocks.NewMockTransport()
	mt.SetupBasicMock(id)
	return mt, func(*config.Instance) transports.Transport { return mt }
}

type harness struct {
	session *Session
	ns      chan models.Notification
	store   *mocks.MockMessageStore
	cfg     *config.Instance
}

func newHarness(t *testing.T, drivers ...DriverFactory) *harness {
	t.Helper()

	h := &harness{
		ns:    make(chan models.Notification, 256),
		store: &mocks.MockMessageStore{},
		cfg:   newTestConfig(t),
	}
	h.session = NewSession(h.cfg, h.store, h.ns, WithDrivers(drivers...))
	t.Cleanup(func() {
		_ = h.session.Close()
	})
	return h
}

// waitFor polls until cond holds.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

// methods drains queued notifications and returns their methods, skipping
// display updates.
func (h *harness) methods() []string {
	var out []string
	for {
		select {
		case n := <-h.ns:
			if n.Method != models.NotificationDisplayUpdated {
				out = append(out, n.Method)
			}
		default:
			return out
		}
	}
}

func connect(t *testing.T, h *harness, mt *mocks.MockTransport, driver string) {
	t.Helper()

	conn := config.TransportConnect{Driver: driver, Path: "/dev/mock"}
	mt.On("Open", mock.Anything, conn, mock.Anything).Return(nil).Once()
	require.NoError(t, h.session.Connect(context.Background(), conn))
}

func TestConnect_ProcessesLinesInOrder(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	connect(t, h, mt, "mock")

	for _, l := range []string{"....", "|", "..", "/", "-.-.", "|"} {
		require.True(t, mt.SimulateText(l))
	}

	waitFor(t, func() bool {
		return h.session.Snapshot().DecodedText == "HI C"
	}, "lines applied in order")

	st := h.session.Status()
	require.NotNil(t, st)
	assert.Equal(t, "mock:/dev/mock", st.Device)
	assert.Equal(t, "mock", st.Driver)
	assert.True(t, st.Connected)
}

func TestDisconnect_StopsProcessingAndKeepsText(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	connect(t, h, mt, "mock")

	require.True(t, mt.SimulateText(".-"))
	require.True(t, mt.SimulateText("|"))
	waitFor(t, func() bool { return h.session.Snapshot().DecodedText == "A" }, "first letter decoded")

	require.NoError(t, h.session.Disconnect())
	assert.True(t, mt.IsClosed())
	assert.Nil(t, h.session.Status())

	assert.False(t, mt.SimulateText("-..."), "closed transport must not deliver")
	assert.Equal(t, "A", h.session.Snapshot().DecodedText)

	assert.Contains(t, h.methods(), models.NotificationTransportDisconnect)
}

func TestDisconnect_MidStream(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	connect(t, h, mt, "mock")

	stop := make(chan struct{})
	sent := make(chan int, 1)
	go func() {
		n := 0
		defer func() { sent <- n }()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if !mt.SimulateText(".") {
				return
			}
			n++
		}
	}()

	waitFor(t, func() bool { return h.session.Snapshot().DecodedText != "" }, "stream started")
	require.NoError(t, h.session.Disconnect())
	after := h.session.Snapshot()

	close(stop)
	<-sent

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, h.session.Snapshot(), "no line applied after disconnect returned")
}

func TestDisconnect_NoTransport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	require.ErrorIs(t, h.session.Disconnect(), ErrNoTransport)
	require.ErrorIs(t, h.session.Disconnect(), transports.ErrNotConnected)
	require.NoError(t, h.session.Close())
}

func TestTransportError_ClearsActive(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	connect(t, h, mt, "mock")

	require.True(t, mt.SimulateLine(transports.Line{Error: errors.New("cable pulled")}))
	waitFor(t, func() bool { return h.session.Status() == nil }, "transport dropped")

	assert.True(t, mt.IsClosed())
	got := h.methods()
	assert.Contains(t, got, models.NotificationTransportError)
	assert.Contains(t, got, models.NotificationTransportDisconnect)
	require.ErrorIs(t, h.session.Disconnect(), ErrNoTransport)
}

func TestTransportClosed_ClearsActive(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	connect(t, h, mt, "mock")

	require.True(t, mt.SimulateText("."))
	require.True(t, mt.SimulateText("/"))
	require.True(t, mt.SimulateLine(transports.Line{Closed: true}))
	waitFor(t, func() bool { return h.session.Status() == nil }, "transport dropped")

	assert.Equal(t, "E ", h.session.Snapshot().DecodedText)
	got := h.methods()
	assert.NotContains(t, got, models.NotificationTransportError)
	assert.Contains(t, got, models.NotificationTransportDisconnect)
}

func TestConnect_ReplacesPrevious(t *testing.T) {
	t.Parallel()

	first, f1 := newMockDriver(t, "alpha")
	second, f2 := newMockDriver(t, "beta")
	h := newHarness(t, f1, f2)

	connect(t, h, first, "alpha")
	require.True(t, first.SimulateText("-"))
	require.True(t, first.SimulateText("|"))
	waitFor(t, func() bool { return h.session.Snapshot().DecodedText == "T" }, "first transport decoded")

	connect(t, h, second, "beta")
	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())
	assert.Equal(t, "beta:/dev/mock", h.session.Status().Device)

	require.True(t, second.SimulateText("."))
	require.True(t, second.SimulateText("|"))
	waitFor(t, func() bool { return h.session.Snapshot().DecodedText == "TE" }, "text carried over")
}

func TestConnect_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)

	err := h.session.Connect(context.Background(), config.TransportConnect{Driver: "nope"})
	require.ErrorIs(t, err, ErrUnknownDriver)
	assert.Nil(t, h.session.Status())
}

func TestConnect_OpenError(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	conn := config.TransportConnect{Driver: "mock", Path: "/dev/missing"}
	mt.On("Open", mock.Anything, conn, mock.Anything).Return(errors.New("no such device"))

	err := h.session.Connect(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such device")
	assert.Nil(t, h.session.Status())
	assert.Equal(t, []string{models.NotificationTransportError}, h.methods())
}

func TestConnect_CancelledContext(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.session.Connect(ctx, config.TransportConnect{Driver: "mock"})
	require.ErrorIs(t, err, context.Canceled)
	mt.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)

	require.ErrorIs(t, h.session.SendCommand(transports.CommandPing), ErrNoTransport)

	connect(t, h, mt, "mock")
	mt.On("Send", transports.CommandStatus).Return(nil).Once()
	mt.On("Send", transports.CommandTest).Return(errors.New("write failed")).Once()

	require.NoError(t, h.session.SendCommand(transports.CommandStatus))
	require.Error(t, h.session.SendCommand(transports.CommandTest))

	assert.Contains(t, h.methods(), models.NotificationTransportCommandSent)
	mt.AssertExpectations(t)
}

func TestManualEntryAndClear(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	assert.Equal(t, "SOS", h.session.ManualEntry("... --- ..."))
	assert.Equal(t, "SOS", h.session.Snapshot().DecodedText)

	h.session.Clear()
	assert.Equal(t, interpreter.State{}, h.session.Snapshot())
	assert.Equal(t, interpreter.EmptyBuilding, h.session.Display().Display)
	assert.Contains(t, h.methods(), models.NotificationSessionCleared)
}

func TestSave(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.SetTargetLanguage("fr")
	h.session.ManualEntry(".... ..")

	h.store.On("SaveMessage", mock.Anything, "HI", false, "fr").Return("id-1", nil).Once()
	id, err := h.session.Save(context.Background(), "", false, "")
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	h.store.On("SaveTranslation", mock.Anything, "SALUT", "HI", "es").Return("id-2", nil).Once()
	id, err = h.session.Save(context.Background(), "SALUT", true, "es")
	require.NoError(t, err)
	assert.Equal(t, "id-2", id)

	assert.Equal(t, []string{models.NotificationMessagesSaved, models.NotificationMessagesSaved}, h.methods())
	h.store.AssertExpectations(t)
}

func TestSave_Errors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.session.Save(context.Background(), "  ", false, "")
	require.ErrorIs(t, err, ErrNothingToSave)

	h.store.On("SaveMessage", mock.Anything, "X", false, "en").Return("", errors.New("disk full"))
	_, err = h.session.Save(context.Background(), "X", false, "")
	require.Error(t, err)
	assert.Equal(t, []string{models.NotificationMessagesSaveFailed}, h.methods())
}

func TestSave_NoStore(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	s := NewSession(cfg, nil, nil, WithDrivers())

	_, err := s.Save(context.Background(), "HI", false, "")
	require.Error(t, err)
}

func TestAutoSave_FromTransport(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	h.cfg.SetAutoSave(true)
	saved := make(chan string, 1)
	h.store.On("SaveMessage", mock.Anything, "EEEEEEEEEE", false, "en").
		Run(func(args mock.Arguments) { saved <- args.String(1) }).
		Return("auto-1", nil).Once()

	connect(t, h, mt, "mock")
	for range 10 {
		require.True(t, mt.SimulateText("."))
		require.True(t, mt.SimulateText("|"))
	}

	select {
	case text := <-saved:
		assert.Equal(t, "EEEEEEEEEE", text)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "auto-save not triggered")
	}
	waitFor(t, func() bool {
		for _, m := range h.methods() {
			if m == models.NotificationMessagesSaved {
				return true
			}
		}
		return false
	}, "saved notification")
}

func TestDriverIDs(t *testing.T) {
	t.Parallel()

	_, f1 := newMockDriver(t, "alpha")
	_, f2 := newMockDriver(t, "beta")
	h := newHarness(t, f1, f2)

	assert.Equal(t, []string{"alpha", "beta"}, h.session.DriverIDs())
}

func TestAutoConnect_ConfiguredThenDetected(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	h.cfg.SetAutoDetect(true)

	broken := config.TransportConnect{Driver: "mock", Path: "/dev/broken"}
	h.cfg.SetTransportConnections([]config.TransportConnect{broken})
	mt.On("Open", mock.Anything, broken, mock.Anything).Return(errors.New("busy"))
	mt.On("Detect", mock.Anything).Return("mock:/dev/found")
	found := config.TransportConnect{Driver: "mock", Path: "/dev/found"}
	mt.On("Open", mock.Anything, found, mock.Anything).Return(nil)

	require.NoError(t, h.session.AutoConnect(context.Background()))
	assert.Equal(t, "mock:/dev/found", h.session.Status().Device)
	assert.Equal(t, []string{"mock:/dev/broken"}, h.session.detector.Failed())
}

func TestAutoConnect_NothingFound(t *testing.T) {
	t.Parallel()

	mt, factory := newMockDriver(t, "mock")
	h := newHarness(t, factory)
	h.cfg.SetAutoDetect(true)
	mt.On("Detect", mock.Anything).Return("")

	require.ErrorIs(t, h.session.AutoConnect(context.Background()), ErrNoTransport)
}

func TestSettings_ReflectsConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.SetTargetLanguage("fr")
	h.cfg.SetAutoConnect(true)

	assert.Equal(t, models.SettingsResponse{
		TargetLanguage: "fr",
		AutoConnect:    true,
	}, h.session.Settings())
}
