/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package host

import (
	"errors"
	"log/slog"
	"strconv"

	"gonovel/internal/engine"
	applog "gonovel/internal/log"
	"gonovel/internal/script"
	"gonovel/internal/textlayout"
	"gonovel/internal/transition"
)

// ErrFinished is returned by Driver.Update once the conversation has ended.
var ErrFinished = errors.New("conversation finished")

// Input is the reader input gathered during one frame.
type Input struct {
	Advance     bool
	TogglePause bool
	ToggleAuto  bool
	// FastForward plays the frame at four times the tick interval.
	FastForward bool
}

// Driver plays one conversation on an Engine, one frame per Update.
type Driver struct {
	Engine *engine.Engine
	Scene  *Scene
	// Fonts resolves the speaker style fonts; nil draws with the bitmap face.
	Fonts  *textlayout.Fonts
	handle *transition.Handle
	frames int
	log    *slog.Logger
}

// NewDriver wraps eng; scene must be the Sink eng was built with.
func NewDriver(eng *engine.Engine, scene *Scene) *Driver {
	return &Driver{Engine: eng, Scene: scene, log: applog.WithComponent("host")}
}

// Start plays conv, replacing what was playing.
func (d *Driver) Start(conv script.Conversation) {
	d.handle = d.Engine.Play(conv)
	d.frames = 0
	d.log.Info("conversation started", slog.String("script", conv.Name), slog.Int("lines", conv.Len()))
}

// Finished reports whether the conversation has ended or none was started.
func (d *Driver) Finished() bool { return d.handle == nil || d.handle.Done() }

// Frames returns how many frames were ticked since Start.
func (d *Driver) Frames() int { return d.frames }

// Update applies in and advances the engine by one frame.
func (d *Driver) Update(in Input) error {
	if d.Finished() {
		return ErrFinished
	}
	conv := d.Engine.Dialogue.Conversation
	if in.TogglePause {
		if conv.Paused() {
			conv.Resume()
		} else {
			conv.Pause()
		}
	}
	if in.ToggleAuto {
		conv.AutoReader().Toggle()
		d.log.Debug("auto reader toggled", slog.Bool("on", conv.AutoReader().On))
	}
	if in.Advance && !conv.Paused() {
		d.Engine.Advance()
	}
	dt := d.Engine.TickInterval()
	if in.FastForward {
		dt *= 4
	}
	d.Engine.Tick(dt)
	d.frames++
	if d.Finished() {
		d.log.Info("conversation finished", slog.Int("frames", d.frames), slog.Bool("cancelled", d.handle.Cancelled()))
	}
	return nil
}

// Status describes the playback position for crash reports and the window title.
func (d *Driver) Status() string {
	conv := d.Engine.Dialogue.Conversation
	s := conv.State().String()
	if conv.Paused() {
		s += " (paused)"
	}
	if conv.AutoReader().On {
		s += " (auto)"
	}
	return s + " at line " + strconv.Itoa(conv.LineIndex()+1)
}
