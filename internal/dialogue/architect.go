/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dialogue sequences conversations: it reveals dialogue text, runs the
// commands embedded in script lines and waits for the reader to advance.
package dialogue

import (
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

// TextArchitect reveals dialogue text a few characters per tick.
type TextArchitect struct {
	sink  render.Sink
	ctl   *transition.Controller
	slot  transition.Slot
	text  []rune
	shown int
	acc   float64

	// CharactersPerSecond is the base reveal rate; zero or less reveals instantly.
	CharactersPerSecond float64
	// Speed multiplies the reveal rate.
	Speed  float64
	paused bool
}

func NewTextArchitect(sched *transition.Scheduler, sink render.Sink, cps float64) *TextArchitect {
	if sink == nil {
		sink = render.Discard
	}
	return &TextArchitect{sink: sink, ctl: transition.NewController(sched), CharactersPerSecond: cps, Speed: 1}
}

// Build replaces the text and reveals it from the start.
func (a *TextArchitect) Build(text string) *transition.Handle {
	a.text = []rune(text)
	a.shown, a.acc = 0, 0
	return a.reveal()
}

// Append adds text after what is already there and keeps revealing.
func (a *TextArchitect) Append(text string) *transition.Handle {
	a.text = append(a.text, []rune(text)...)
	return a.reveal()
}

func (a *TextArchitect) reveal() *transition.Handle {
	if a.CharactersPerSecond <= 0 {
		a.ForceComplete()
		return transition.Completed()
	}
	if h := a.slot.Owner(); h != nil {
		return h
	}
	a.acc = float64(a.shown)
	return a.ctl.Begin(&a.slot, transition.StepFunc(a.step))
}

func (a *TextArchitect) step(dt float64) bool {
	if a.paused {
		return false
	}
	a.acc += dt * a.CharactersPerSecond * transition.Speed(a.Speed)
	n := int(a.acc)
	if n > len(a.text) {
		n = len(a.text)
	}
	if n != a.shown {
		a.shown = n
		a.sink.SetText(string(a.text[:n]))
	}
	return a.shown >= len(a.text)
}

// Building reports whether text is still being revealed.
func (a *TextArchitect) Building() bool { return a.slot.Busy() }

// ForceComplete shows the whole text at once.
func (a *TextArchitect) ForceComplete() {
	a.slot.Stop()
	a.shown = len(a.text)
	a.sink.SetText(string(a.text))
}

// Stop halts revealing and leaves the visible text as it is.
func (a *TextArchitect) Stop() { a.slot.Stop() }

// Text returns the full text being built.
func (a *TextArchitect) Text() string { return string(a.text) }

// Visible returns the revealed part.
func (a *TextArchitect) Visible() string { return string(a.text[:a.shown]) }

// SetPaused freezes or resumes revealing.
func (a *TextArchitect) SetPaused(p bool) { a.paused = p }

// AutoReader advances finished lines after a delay proportional to their length.
type AutoReader struct {
	On      bool
	Base    float64 // seconds
	PerChar float64 // seconds per character
	Speed   float64
}

// Delay is how long a line stays on screen before advancing.
func (r *AutoReader) Delay(text string) float64 {
	d := r.Base + r.PerChar*float64(len([]rune(text)))
	return d / transition.Speed(r.Speed)
}

func (r *AutoReader) Enable() { r.On = true }
func (r *AutoReader) Disable() { r.On = false }
func (r *AutoReader) Toggle() { r.On = !r.On }
