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

// Package cli holds the command line flags shared by every build of the
// blinktalk binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/blinktalk/blinktalk-core/internal/telemetry"
	"github.com/blinktalk/blinktalk-core/pkg/api/client"
	"github.com/blinktalk/blinktalk-core/pkg/audio"
	"github.com/blinktalk/blinktalk-core/pkg/api/methods"
	"github.com/blinktalk/blinktalk-core/pkg/api/models"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/database"
	"github.com/blinktalk/blinktalk-core/pkg/helpers"
	"github.com/blinktalk/blinktalk-core/pkg/morse"
	"github.com/blinktalk/blinktalk-core/pkg/service"
	"github.com/blinktalk/blinktalk-core/pkg/ui/tui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var ErrFlagValue = errors.New("flag requires a value")

// maxExport is the largest page the messages method returns.
const maxExport = 1000

type Flags struct {
	set         *flag.FlagSet
	files       afero.Fs
	Version     *bool
	Daemon      *bool
	Service     *string
	Debug       *bool
	ListDevices *bool
	Watch       *bool
	Monitor     *bool
	Encode      *string
	Play        *bool
	Decode      *string
	Manual      *string
	Command     *string
	Connect     *string
	Disconnect  *bool
	Save        *bool
	API         *string
	Export      *string
}

// SetupFlags defines all common CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set:   fs,
		files: afero.NewOsFs(),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run service in foreground with logs on stderr",
		),
		Service: fs.String(
			"service",
			"",
			"manage the background service: start, stop, restart or status",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging",
		),
		ListDevices: fs.Bool(
			"list-devices",
			false,
			"list serial ports and bluetooth devices",
		),
		Watch: fs.Bool(
			"watch",
			false,
			"print service notifications until interrupted",
		),
		Monitor: fs.Bool(
			"monitor",
			false,
			"open a live terminal view of the running session",
		),
		Encode: fs.String(
			"encode",
			"",
			"print text as morse and exit",
		),
		Play: fs.Bool(
			"play",
			false,
			"with -encode, also sound the morse as a sidetone",
		),
		Decode: fs.String(
			"decode",
			"",
			"print morse as text and exit",
		),
		Manual: fs.String(
			"manual",
			"",
			"append morse to the running session",
		),
		Command: fs.String(
			"command",
			"",
			"send a command to the connected detector",
		),
		Connect: fs.String(
			"connect",
			"",
			"connect the running service to driver:path",
		),
		Disconnect: fs.Bool(
			"disconnect",
			false,
			"disconnect the running service from its detector",
		),
		Save: fs.Bool(
			"save",
			false,
			"save the current transcript",
		),
		API: fs.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Export: fs.String(
			"export",
			"",
			"write saved messages to a CSV file",
		),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and actions any flags that need no config or service.
// Returns true if a flag was handled and the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("parsing flags: %w", err)
	}

	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "Blinktalk v%s\n", config.AppVersion)
		return true, nil
	case f.isFlagPassed("encode"):
		encoded := morse.Encode(*f.Encode)
		_, _ = fmt.Fprintln(out, encoded)
		if *f.Play {
			tone := audio.Tone{Frequency: config.DefaultSidetoneFrequency, WPM: config.DefaultSidetoneWPM}
			if err := audio.SoundMorse(context.Background(), encoded, tone); err != nil {
				return true, fmt.Errorf("playing morse: %w", err)
			}
		}
		return true, nil
	case f.isFlagPassed("decode"):
		if !morse.IsValidMorse(*f.Decode) {
			return true, fmt.Errorf("decode: not a morse pattern: %q", *f.Decode)
		}
		_, _ = fmt.Fprintln(out, morse.Decode(*f.Decode))
		return true, nil
	}
	return false, nil
}

func callPrint(ctx context.Context, wsURL, method string, params any, out io.Writer) error {
	var ps string
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding params: %w", err)
		}
		ps = string(data)
	}

	resp, err := client.Call(ctx, wsURL, method, ps)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	_, _ = fmt.Fprintln(out, string(resp))
	return nil
}

// Post actions the flags that talk to a running service at wsURL. Returns
// true if a flag was handled.
func (f *Flags) Post(ctx context.Context, wsURL string, out io.Writer) (bool, error) {
	switch {
	case *f.ListDevices:
		return true, listDevices(ctx, wsURL, out)
	case f.isFlagPassed("manual"):
		if *f.Manual == "" {
			return true, fmt.Errorf("manual: %w", ErrFlagValue)
		}
		return true, callPrint(ctx, wsURL, methods.MethodManual, models.ManualParams{Input: *f.Manual}, out)
	case f.isFlagPassed("command"):
		if *f.Command == "" {
			return true, fmt.Errorf("command: %w", ErrFlagValue)
		}
		return true, callPrint(ctx, wsURL, methods.MethodCommand, models.CommandParams{Command: *f.Command}, out)
	case f.isFlagPassed("connect"):
		conn, err := service.ParseConnectionString(*f.Connect)
		if err != nil {
			return true, fmt.Errorf("connect: %w", err)
		}
		params := models.ConnectParams{Driver: conn.Driver, Path: conn.Path}
		return true, callPrint(ctx, wsURL, methods.MethodConnect, params, out)
	case *f.Disconnect:
		return true, callPrint(ctx, wsURL, methods.MethodDisconnect, nil, out)
	case *f.Save:
		return true, callPrint(ctx, wsURL, methods.MethodSave, nil, out)
	case f.isFlagPassed("api"):
		if *f.API == "" {
			return true, fmt.Errorf("api: %w", ErrFlagValue)
		}
		method, params, _ := strings.Cut(*f.API, ":")
		resp, err := client.Call(ctx, wsURL, method, params)
		if err != nil {
			return true, fmt.Errorf("calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(resp))
		return true, nil
	case f.isFlagPassed("export"):
		if *f.Export == "" {
			return true, fmt.Errorf("export: %w", ErrFlagValue)
		}
		return true, f.exportMessages(ctx, wsURL, *f.Export, out)
	case *f.Monitor:
		if err := tui.RunMonitor(ctx, wsURL); err != nil {
			return true, fmt.Errorf("monitor: %w", err)
		}
		return true, nil
	case *f.Watch:
		err := client.Watch(ctx, wsURL, func(n models.Notification) {
			data, err := json.Marshal(n)
			if err != nil {
				log.Error().Err(err).Msg("encoding notification")
				return
			}
			_, _ = fmt.Fprintln(out, string(data))
		})
		if err != nil {
			return true, fmt.Errorf("watching notifications: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (f *Flags) exportMessages(ctx context.Context, wsURL, path string, out io.Writer) error {
	params := fmt.Sprintf(`{"limit":%d}`, maxExport)
	resp, err := client.Call(ctx, wsURL, methods.MethodMessages, params)
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}

	var mr models.MessagesResponse
	if err := json.Unmarshal(resp, &mr); err != nil {
		return fmt.Errorf("decoding messages: %w", err)
	}

	file, err := f.files.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := database.WriteCSV(file, mr.Messages); err != nil {
		_ = file.Close()
		return err //nolint:wrapcheck // already wrapped
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Exported %d messages to %s\n", len(mr.Messages), path)
	return nil
}

// listDevices asks the service for devices and falls back to listing local
// serial ports when no service is running.
func listDevices(ctx context.Context, wsURL string, out io.Writer) error {
	var devices []models.DeviceEntry

	resp, err := client.Call(ctx, wsURL, methods.MethodDevices, "")
	if err == nil {
		var dr models.DevicesResponse
		if err := json.Unmarshal(resp, &dr); err != nil {
			return fmt.Errorf("decoding devices: %w", err)
		}
		devices = dr.Devices
	} else {
		log.Debug().Err(err).Msg("service not reachable, listing local serial ports")
		ports, err := helpers.ListSerialDevices()
		if err != nil {
			return fmt.Errorf("listing serial devices: %w", err)
		}
		for _, p := range ports {
			conn := config.TransportConnect{Driver: "serial", Path: p.Path}
			devices = append(devices, models.DeviceEntry{
				Driver:      conn.Driver,
				Path:        p.Path,
				Description: helpers.VendorName(p.VID),
				Connection:  conn.ConnectionString(),
				Supported:   p.Known,
			})
		}
	}

	if len(devices) == 0 {
		_, _ = fmt.Fprintln(out, "No devices found")
		return nil
	}
	for _, d := range devices {
		mark := " "
		if d.Supported {
			mark = "*"
		}
		label := d.Description
		if d.Name != "" {
			label = d.Name
		}
		_, _ = fmt.Fprintf(out, "%s %-40s %s\n", mark, d.Connection, label)
	}
	return nil
}

// Setup creates the user directories, loads the config and starts logging
// and opt-in error reporting.
func Setup(dirs helpers.Dirs, defaults config.Values, debug bool, writers ...io.Writer) (*config.Instance, error) {
	if err := helpers.EnsureDirs(dirs); err != nil {
		return nil, fmt.Errorf("creating directories: %w", err)
	}

	cfg, err := config.NewConfig(dirs.Config, defaults)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := helpers.InitLogging(dirs.Log, debug || cfg.DebugLogging(), writers...); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info().
		Str("version", config.AppVersion).
		Str("config", cfg.Path()).
		Msg("blinktalk starting")

	if cfg.ErrorReporting() {
		if err := telemetry.Init(cfg.ErrorReportingDSN(), cfg.DeviceID(), config.AppVersion); err != nil {
			log.Warn().Err(err).Msg("failed to initialize error reporting")
		}
	}

	return cfg, nil
}
