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

// Package audio plays morse sidetone and feedback sounds.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/helpers/syncutil"
	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"
)

// SampleRate is the output device rate. Files are resampled to it.
const SampleRate = beep.SampleRate(48000)

type Player interface {
	PlayMorse(pattern string, tone Tone) error
	PlayFile(path string) error
	ClearFileCache()
}

type MalgoPlayer struct {
	currentCancel context.CancelFunc
	fileCache     map[string][]byte
	playbackGen   uint64
	fileCacheMu   syncutil.RWMutex
	playbackMu    syncutil.Mutex
}

func NewMalgoPlayer() *MalgoPlayer {
	return &MalgoPlayer{
		fileCache: make(map[string][]byte),
	}
}

// PlayMorse sounds a dot/dash pattern. It returns once playback has
// started; a later call cuts the current sound short.
func (p *MalgoPlayer) PlayMorse(pattern string, tone Tone) error {
	s, err := MorseStreamer(pattern, tone)
	if err != nil {
		return err
	}
	p.play(s, nil, "morse")
	return nil
}

type decodeFunc func(data []byte) (beep.StreamSeekCloser, beep.Format, error)

// decoders maps a lowercase file extension to its beep decoder.
var decoders = map[string]decodeFunc{
	".wav": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(bytes.NewReader(data))
	},
	".mp3": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	},
	".ogg": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	},
	".flac": func(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(bytes.NewReader(data))
	},
}

// PlayFile plays a wav, mp3, ogg or flac cue file.
func (p *MalgoPlayer) PlayFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return fmt.Errorf("unsupported sound file %q: use .wav, .mp3, .ogg or .flac", ext)
	}

	data, err := p.readFileWithCache(path)
	if err != nil {
		return fmt.Errorf("reading sound file: %w", err)
	}
	streamer, format, err := decode(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	p.play(beep.Resample(4, format.SampleRate, SampleRate, streamer), streamer.Close, path)
	return nil
}

// play cuts off whatever is sounding and starts s in the background.
// closeFn, when set, runs once playback ends.
func (p *MalgoPlayer) play(s beep.Streamer, closeFn func() error, name string) {
	ctx, cancel := context.WithCancel(context.Background())

	p.playbackMu.Lock()
	if p.currentCancel != nil {
		p.currentCancel()
	}
	p.currentCancel = cancel
	p.playbackGen++
	gen := p.playbackGen
	p.playbackMu.Unlock()

	go func() {
		defer p.finished(gen, cancel, closeFn)

		err := playWithMalgo(ctx, s)
		switch {
		case errors.Is(err, context.Canceled):
			log.Debug().Str("sound", name).Msg("playback interrupted")
		case err != nil:
			log.Warn().Err(err).Str("sound", name).Msg("failed to play audio")
		default:
			log.Debug().Str("sound", name).Msg("completed audio playback")
		}
	}()
}

func (p *MalgoPlayer) finished(gen uint64, cancel context.CancelFunc, closeFn func() error) {
	cancel()
	if closeFn != nil {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("failed to close audio streamer")
		}
	}
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()
	if p.playbackGen == gen {
		p.currentCancel = nil
	}
}

// readFileWithCache keeps configured cue files in memory since they are
// played repeatedly.
func (p *MalgoPlayer) readFileWithCache(path string) ([]byte, error) {
	p.fileCacheMu.RLock()
	if cached, ok := p.fileCache[path]; ok {
		p.fileCacheMu.RUnlock()
		return cached, nil
	}
	p.fileCacheMu.RUnlock()

	//nolint:gosec // G304: path comes from the user's own config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	p.fileCacheMu.Lock()
	p.fileCache[path] = data
	p.fileCacheMu.Unlock()

	return data, nil
}

// ClearFileCache drops cached files so a config reload picks up new ones.
func (p *MalgoPlayer) ClearFileCache() {
	p.fileCacheMu.Lock()
	defer p.fileCacheMu.Unlock()
	p.fileCache = make(map[string][]byte)
}

// putFrames writes n stereo frames as little endian float32 and zeroes the
// rest of out.
func putFrames(out []byte, frames [][2]float64, n int) {
	off := 0
	for _, f := range frames[:n] {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(float32(f[1])))
		off += 8
	}
	clear(out[off:])
}

// playWithMalgo opens the default output device and blocks until the
// streamer runs dry or ctx is cancelled.
func playWithMalgo(ctx context.Context, streamer beep.Streamer) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("audio context: %w", err)
	}
	if mctx == nil {
		return errors.New("audio context: not initialized")
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	// F32 avoids miniaudio's S16->S32 conversion on PulseAudio
	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatF32
	devCfg.Playback.Channels = 2
	devCfg.SampleRate = uint32(SampleRate)
	devCfg.Alsa.NoMMap = 1

	var (
		mu     syncutil.Mutex
		frames [][2]float64
		ended  bool
	)
	drained := make(chan struct{})
	finish := func() {
		if !ended {
			ended = true
			close(drained)
		}
	}

	onData := func(out, _ []byte, frameCount uint32) {
		mu.Lock()
		defer mu.Unlock()

		if ended {
			clear(out)
			return
		}
		if ctx.Err() != nil {
			finish()
			clear(out)
			return
		}

		if cap(frames) < int(frameCount) {
			frames = make([][2]float64, frameCount)
		}
		n, ok := streamer.Stream(frames[:frameCount])
		if !ok || n == 0 {
			finish()
			clear(out)
			return
		}
		putFrames(out, frames, n)
	}

	device, err := malgo.InitDevice(mctx.Context, devCfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("starting audio device: %w", err)
	}

	select {
	case <-drained:
	case <-ctx.Done():
		mu.Lock()
		finish()
		mu.Unlock()
	}

	if err := device.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop audio device")
	}
	return ctx.Err()
}
