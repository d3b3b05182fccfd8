/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"

	"golang.org/x/image/font"
)

// Advance is the width of s in whole pixels.
func Advance(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// LineHeight is the distance between baselines in pixels.
func LineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// Wrap breaks s into lines no wider than maxWidth pixels. Lines break at spaces
// and at '\n'; a word wider than a line is split between runes. A non-positive
// maxWidth only splits at '\n'.
func Wrap(face font.Face, s string, maxWidth int) []string {
	paras := strings.Split(s, "\n")
	if maxWidth <= 0 {
		return paras
	}
	space := Advance(face, " ")
	var out []string
	for _, para := range paras {
		start := len(out)
		var line strings.Builder
		width := 0
		flush := func() {
			out = append(out, line.String())
			line.Reset()
			width = 0
		}
		for _, word := range strings.Fields(para) {
			w := Advance(face, word)
			if width > 0 && width+space+w > maxWidth {
				flush()
			}
			for w > maxWidth {
				head, rest := splitWord(face, word, maxWidth)
				if head == "" {
					// Not even one rune fits; place one anyway.
					r := []rune(word)
					head, rest = string(r[:1]), string(r[1:])
				}
				line.WriteString(head)
				flush()
				word, w = rest, Advance(face, rest)
			}
			if word == "" {
				continue
			}
			if width > 0 {
				line.WriteByte(' ')
				width += space
			}
			line.WriteString(word)
			width += w
		}
		if line.Len() > 0 || len(out) == start {
			flush()
		}
	}
	return out
}

// splitWord returns the longest prefix of word that fits into room pixels.
func splitWord(face font.Face, word string, room int) (string, string) {
	r := []rune(word)
	n := 0
	for n < len(r) && Advance(face, string(r[:n+1])) <= room {
		n++
	}
	return string(r[:n]), string(r[n:])
}
