/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"log/slog"
	"strings"

	"gonovel/internal/character"
	"gonovel/internal/render"
	"gonovel/internal/script"
	"gonovel/internal/transition"
)

// Narrator is the speaker name whose lines show no name plate.
const Narrator = "narrator"

// Options tune text reveal and auto reading.
type Options struct {
	CharactersPerSecond float64
	TextSpeed           float64
	AutoAdvance         bool
	AutoBase            float64
	AutoPerChar         float64
}

// DefaultOptions returns the reveal and auto-read rates used when nothing is configured.
func DefaultOptions() Options {
	return Options{CharactersPerSecond: 40, TextSpeed: 1, AutoBase: 1, AutoPerChar: 0.05}
}

// System is the dialogue front: it owns the conversation manager and presents
// speakers on the dialogue container.
type System struct {
	Conversation *Manager
	Architect    *TextArchitect
	Auto         *AutoReader

	chars *character.Manager
	sink  render.Sink
	log   *slog.Logger
}

func NewSystem(sched *transition.Scheduler, d Dispatcher, chars *character.Manager, sink render.Sink, logger *slog.Logger, opts Options) *System {
	if sink == nil {
		sink = render.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &System{chars: chars, sink: sink, log: logger}
	s.Architect = NewTextArchitect(sched, sink, opts.CharactersPerSecond)
	s.Architect.Speed = opts.TextSpeed
	s.Auto = &AutoReader{On: opts.AutoAdvance, Base: opts.AutoBase, PerChar: opts.AutoPerChar, Speed: opts.TextSpeed}
	s.Conversation = NewManager(sched, s.Architect, s.Auto, d, s, logger)
	return s
}

// Say plays a single line spoken by speaker.
func (s *System) Say(speaker, text string) *transition.Handle {
	return s.SayLines([]string{speaker + ` "` + text + `"`})
}

// SayLines plays raw script lines as an unnamed conversation.
func (s *System) SayLines(lines []string) *transition.Handle {
	return s.Conversation.StartConversation(script.NewConversation(lines))
}

// Play starts conv, replacing whatever conversation is running.
func (s *System) Play(conv script.Conversation) *transition.Handle {
	return s.Conversation.StartConversation(conv)
}

func (s *System) OnUserPromptNext() { s.Conversation.OnUserPromptNext() }
func (s *System) OnSystemPromptNext() { s.Conversation.OnSystemPromptNext() }

// PresentSpeaker shows the speaker's name in its configured style and forwards
// the line's expressions to the character.
func (s *System) PresentSpeaker(sp *script.Speaker) {
	if sp == nil {
		s.sink.SetSpeaker("", render.SpeakerStyle{})
		return
	}
	display, _ := character.ParseCasting(sp.Name)
	if strings.EqualFold(display, Narrator) {
		s.sink.SetSpeaker("", s.chars.Config(sp.Name).Style())
		return
	}
	c, ok := s.chars.GetCharacter(sp.Name, true)
	if !ok {
		s.sink.SetSpeaker(display, character.DefaultConfig().Style())
		return
	}
	s.sink.SetSpeaker(display, c.Identity().Config.Style())
	for _, e := range sp.Expressions {
		if err := c.OnReceiveCastingExpression(e.Layer, e.Name); err != nil {
			s.log.Warn("expression not applied", "character", display, "layer", e.Layer, "expression", e.Name, "err", err)
		}
	}
}
