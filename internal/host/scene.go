/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package host drives an Engine from a display loop. Scene keeps the latest value of
// every property the engine writes so a frame can be drawn at any time; Driver feeds
// reader input and ticks. The ebiten window lives behind the ebiten build tag.
package host

import (
	"sort"
	"strings"

	"gonovel/internal/render"
)

// Surface is the drawable state of one render target.
type Surface struct {
	Target  string
	Alpha   float64
	Color   render.Color
	Content render.Content
	// Next and Progress describe a running cross-fade; Blend is its mask texture.
	Next     render.Content
	Progress float64
	Blend    render.Content
	seq      int
}

// Visible reports whether the surface draws anything.
func (s *Surface) Visible() bool {
	return s.Alpha > 0 && (!s.Content.Empty() || (s.Progress > 0 && !s.Next.Empty()))
}

// Scene is a render.Sink that keeps the latest frame state.
type Scene struct {
	surfaces map[string]*Surface
	seq      int
	Speaker  string
	Style    render.SpeakerStyle
	Text     string
}

func NewScene() *Scene { return &Scene{surfaces: map[string]*Surface{}} }

func (s *Scene) surface(target string) *Surface {
	sf, ok := s.surfaces[target]
	if !ok {
		s.seq++
		sf = &Surface{Target: target, Alpha: 1, Color: render.White, seq: s.seq}
		s.surfaces[target] = sf
	}
	return sf
}

func (s *Scene) SetAlpha(target string, a float64) { s.surface(target).Alpha = a }

func (s *Scene) SetColor(target string, c render.Color) { s.surface(target).Color = c }

func (s *Scene) SetContent(target string, c render.Content) {
	sf := s.surface(target)
	sf.Content = c
	sf.Next, sf.Progress, sf.Blend = render.Content{}, 0, render.Content{}
}

func (s *Scene) SetBlend(target string, next render.Content, progress float64, blend render.Content) {
	sf := s.surface(target)
	sf.Next, sf.Progress, sf.Blend = next, progress, blend
}

func (s *Scene) SetSpeaker(name string, style render.SpeakerStyle) {
	s.Speaker, s.Style = name, style
}

func (s *Scene) SetText(visible string) { s.Text = visible }

// Surface returns the state of target.
func (s *Scene) Surface(target string) (Surface, bool) {
	sf, ok := s.surfaces[target]
	if !ok {
		return Surface{}, false
	}
	return *sf, true
}

// Surfaces returns every target in draw order: panels before characters, then
// in order of first write. A character's own target precedes its layers.
func (s *Scene) Surfaces() []Surface {
	out := make([]Surface, 0, len(s.surfaces))
	for _, sf := range s.surfaces {
		out = append(out, *sf)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := drawRank(out[i].Target), drawRank(out[j].Target)
		if ri != rj {
			return ri < rj
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// EffectiveAlpha multiplies target's alpha by the alpha of every ancestor target,
// so fading "character/alice" fades its layers.
func (s *Scene) EffectiveAlpha(target string) float64 {
	a := 1.0
	for t := target; t != ""; {
		if sf, ok := s.surfaces[t]; ok {
			a *= sf.Alpha
		}
		i := strings.LastIndexByte(t, '/')
		if i < 0 {
			break
		}
		t = t[:i]
	}
	return a
}

func drawRank(target string) int {
	switch {
	case strings.HasPrefix(target, "panel/"):
		return 0
	case strings.HasPrefix(target, "character/"):
		return 1
	}
	return 2
}

// Reset forgets every surface and clears the dialogue box.
func (s *Scene) Reset() {
	s.surfaces = map[string]*Surface{}
	s.seq = 0
	s.Speaker, s.Style, s.Text = "", render.SpeakerStyle{}, ""
}
