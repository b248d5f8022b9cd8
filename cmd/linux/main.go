//go:build linux

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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinktalk/blinktalk-core/internal/telemetry"
	"github.com/blinktalk/blinktalk-core/pkg/api/client"
	"github.com/blinktalk/blinktalk-core/pkg/cli"
	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/blinktalk/blinktalk-core/pkg/helpers"
	"github.com/blinktalk/blinktalk-core/pkg/service/daemon"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)

	done, err := flags.Pre(os.Args[1:], os.Stdout)
	if err != nil || done {
		return err
	}

	if os.Geteuid() == 0 {
		return errors.New("blinktalk cannot be run as root")
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{helpers.ConsoleWriter(os.Stderr)}
	}

	dirs := helpers.DefaultDirs()
	cfg, err := cli.Setup(dirs, config.BaseDefaults, *flags.Debug, logWriters...)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := daemon.NewService(daemon.ServiceArgs{Dir: dirs.Data})
	if err != nil {
		return err
	}
	runService := func(ctx context.Context) error {
		return cli.RunService(ctx, cfg, dirs.Data)
	}

	done, err = svc.Handle(ctx, *flags.Service, os.Stdout, runService)
	if err != nil || done {
		return err
	}

	done, err = flags.Post(ctx, client.LocalURL(cfg), os.Stdout)
	if err != nil || done {
		return err
	}

	log.Info().Bool("console", *flags.Daemon).Msg("running service in the foreground")
	return svc.Exec(ctx, runService)
}
