//go:build unix

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

// Package daemon starts, stops and tracks a background blinktalk service
// through a PID file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/blinktalk/blinktalk-core/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
)

const (
	pollInterval = 50 * time.Millisecond
	startTimeout = 3 * time.Second
	stopTimeout  = 10 * time.Second
)

// RunFunc runs the service in the current process until ctx is done.
type RunFunc func(ctx context.Context) error

type Service struct {
	dir string
	exe string
}

type ServiceArgs struct {
	// Dir holds the PID file.
	Dir string
	// Exe is the binary Start launches. Defaults to the running executable.
	Exe string
}

func NewService(args ServiceArgs) (*Service, error) {
	if err := os.MkdirAll(args.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create pid directory: %w", err)
	}

	exe := args.Exe
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("error getting absolute binary path: %w", err)
		}
	}

	return &Service{dir: args.Dir, exe: exe}, nil
}

func (s *Service) pidPath() string {
	return filepath.Join(s.dir, config.PidFile)
}

func (s *Service) createPidFile() error {
	err := os.WriteFile(s.pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (s *Service) removePidFile() error {
	if err := os.Remove(s.pidPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Pid returns the PID recorded for the background service, or 0 when there
// is no PID file.
func (s *Service) Pid() (int, error) {
	//nolint:gosec // Safe: reads our own PID file
	data, err := os.ReadFile(s.pidPath())
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// Running returns true if the recorded process is alive.
func (s *Service) Running() bool {
	pid, err := s.Pid()
	if err != nil || pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Exec runs the service in this process, holding the PID file until run
// returns.
func (s *Service) Exec(ctx context.Context, run RunFunc) error {
	if s.Running() {
		return ErrAlreadyRunning
	}

	if err := s.createPidFile(); err != nil {
		return err
	}
	defer func() {
		if err := s.removePidFile(); err != nil {
			log.Error().Err(err).Msg("error removing pid file")
		}
	}()

	if err := syscall.Setpriority(syscall.PRIO_PROCESS, 0, 1); err != nil {
		log.Debug().Err(err).Msg("error setting nice level")
	}

	log.Info().Int("pid", os.Getpid()).Msg("service started")
	err := run(ctx)
	log.Info().Msg("service stopped")
	return err
}

// Start launches the service as a detached background process and waits
// for it to record its PID.
func (s *Service) Start() error {
	if s.Running() {
		return ErrAlreadyRunning
	}

	//nolint:gosec // Safe: launches our own binary
	cmd := exec.Command(s.exe, "-service", "exec")
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("error releasing service process: %w", err)
	}

	deadline := time.Now().Add(startTimeout)
	for !s.Running() {
		if time.Now().After(deadline) {
			return errors.New("service did not record a PID, check the log for errors")
		}
		time.Sleep(pollInterval)
	}

	pid, _ := s.Pid()
	log.Info().Msgf("service process started with PID %d", pid)
	return nil
}

// Stop asks the background service to shut down.
func (s *Service) Stop() error {
	if !s.Running() {
		return ErrNotRunning
	}

	pid, err := s.Pid()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process: %w", err)
	}
	return nil
}

func (s *Service) Restart() error {
	if s.Running() {
		if err := s.Stop(); err != nil {
			return err
		}
	}

	// the PID file goes when the old process exits
	deadline := time.Now().Add(stopTimeout)
	for {
		pid, err := s.Pid()
		if err == nil && pid == 0 {
			break
		}
		if !s.Running() {
			_ = s.removePidFile()
			break
		}
		if time.Now().After(deadline) {
			return errors.New("timeout waiting for service to stop")
		}
		time.Sleep(pollInterval)
	}

	return s.Start()
}

// Handle runs a -service subcommand. It reports false when cmd is empty.
func (s *Service) Handle(ctx context.Context, cmd string, out io.Writer, run RunFunc) (bool, error) {
	switch cmd {
	case "":
		return false, nil
	case "exec":
		return true, s.Exec(ctx, run)
	case "start":
		return true, s.Start()
	case "stop":
		return true, s.Stop()
	case "restart":
		return true, s.Restart()
	case "status":
		if s.Running() {
			_, _ = fmt.Fprintln(out, "started")
			return true, nil
		}
		_, _ = fmt.Fprintln(out, "stopped")
		return true, ErrNotRunning
	default:
		return true, fmt.Errorf("unknown service argument: %s", cmd)
	}
}
