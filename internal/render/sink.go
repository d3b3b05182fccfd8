/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render defines the write-only contract between the engine and whatever
// draws it. The engine pushes property values step by step; it never reads them back.
package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA color with channels in [0,1].
type Color struct {
	R, G, B, A float64
}

var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
	Clear = Color{0, 0, 0, 0}
)

var named = map[string]Color{
	"white":   White,
	"black":   Black,
	"red":     {1, 0, 0, 1},
	"green":   {0, 1, 0, 1},
	"blue":    {0, 0, 1, 1},
	"yellow":  {1, 0.92, 0.016, 1},
	"cyan":    {0, 1, 1, 1},
	"magenta": {1, 0, 1, 1},
	"gray":    {0.5, 0.5, 0.5, 1},
	"grey":    {0.5, 0.5, 0.5, 1},
	"clear":   Clear,
}

// ParseColor accepts a color name or a hex string (#RGB, #RRGGBB, #RRGGBBAA).
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	ch := func(shift uint) float64 { return float64((n>>shift)&0xff) / 255 }
	return Color{R: ch(24), G: ch(16), B: ch(8), A: ch(0)}, nil
}

// Lerp interpolates channel-wise.
func (c Color) Lerp(to Color, t float64) Color {
	return Color{
		R: c.R + (to.R-c.R)*t,
		G: c.G + (to.G-c.G)*t,
		B: c.B + (to.B-c.B)*t,
		A: c.A + (to.A-c.A)*t,
	}
}

// Scale multiplies the RGB channels by f and keeps alpha.
func (c Color) Scale(f float64) Color { return Color{c.R * f, c.G * f, c.B * f, c.A} }

func (c Color) String() string {
	b := func(v float64) int { return int(v*255 + 0.5) }
	return fmt.Sprintf("#%02x%02x%02x%02x", b(c.R), b(c.G), b(c.B), b(c.A))
}

// Content identifies what a surface shows. The zero value is empty.
type Content struct {
	Kind string // "image", "video" or "" for empty
	Path string
	// Payload is the loaded asset; hosts type-assert it.
	Payload any
	// Audio plays a video's sound track.
	Audio bool
}

func (c Content) Empty() bool { return c.Kind == "" }

// SpeakerStyle is the dialogue box styling applied for the current speaker.
type SpeakerStyle struct {
	NameColor     Color
	NameFont      string
	NameScale     float64
	DialogueColor Color
	DialogueFont  string
	DialogueScale float64
}

// Sink receives per-step property writes. Targets are slash paths such as
// "character/alice", "character/alice/layer/0" or "panel/background/layer/1".
type Sink interface {
	SetAlpha(target string, alpha float64)
	SetColor(target string, c Color)
	SetContent(target string, c Content)
	// SetBlend reports cross-fade progress in [0,1] from the current content to next.
	SetBlend(target string, next Content, progress float64, blend Content)
	// SetSpeaker shows a name; an empty name hides the name plate.
	SetSpeaker(name string, style SpeakerStyle)
	SetText(visible string)
}

type discard struct{}

func (discard) SetAlpha(string, float64)                   {}
func (discard) SetColor(string, Color)                     {}
func (discard) SetContent(string, Content)                 {}
func (discard) SetBlend(string, Content, float64, Content) {}
func (discard) SetSpeaker(string, SpeakerStyle)            {}
func (discard) SetText(string)                             {}

// Discard is a Sink that drops every write.
var Discard Sink = discard{}
