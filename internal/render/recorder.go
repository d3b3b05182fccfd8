/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

// Write is one property write captured by a Recorder.
type Write struct {
	Target string
	Prop   string // alpha, color, content, blend, speaker, text
	Value  any
}

// Recorder is a Sink that keeps every write and the latest value per target.
// The headless runner logs from it and tests assert against it.
type Recorder struct {
	Writes  []Write
	alpha   map[string]float64
	color   map[string]Color
	content map[string]Content
	Speaker string
	Style   SpeakerStyle
	Text    string
}

func NewRecorder() *Recorder {
	return &Recorder{
		alpha:   map[string]float64{},
		color:   map[string]Color{},
		content: map[string]Content{},
	}
}

func (r *Recorder) SetAlpha(target string, a float64) {
	r.alpha[target] = a
	r.Writes = append(r.Writes, Write{target, "alpha", a})
}

func (r *Recorder) SetColor(target string, c Color) {
	r.color[target] = c
	r.Writes = append(r.Writes, Write{target, "color", c})
}

func (r *Recorder) SetContent(target string, c Content) {
	r.content[target] = c
	r.Writes = append(r.Writes, Write{target, "content", c})
}

func (r *Recorder) SetBlend(target string, next Content, progress float64, _ Content) {
	r.Writes = append(r.Writes, Write{target, "blend", progress})
}

func (r *Recorder) SetSpeaker(name string, style SpeakerStyle) {
	r.Speaker, r.Style = name, style
	r.Writes = append(r.Writes, Write{"dialogue/name", "speaker", name})
}

func (r *Recorder) SetText(visible string) {
	r.Text = visible
	r.Writes = append(r.Writes, Write{"dialogue/text", "text", visible})
}

// Alpha returns the last alpha written to target.
func (r *Recorder) Alpha(target string) (float64, bool) {
	v, ok := r.alpha[target]
	return v, ok
}

// Color returns the last color written to target.
func (r *Recorder) Color(target string) (Color, bool) {
	v, ok := r.color[target]
	return v, ok
}

// Content returns the last content written to target.
func (r *Recorder) Content(target string) (Content, bool) {
	v, ok := r.content[target]
	return v, ok
}

// Count returns how many writes of prop went to target.
func (r *Recorder) Count(target, prop string) int {
	n := 0
	for _, w := range r.Writes {
		if w.Target == target && w.Prop == prop {
			n++
		}
	}
	return n
}

// Reset forgets the write log but keeps the latest values.
func (r *Recorder) Reset() { r.Writes = nil }
