/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps dialogue text. Fonts are looked up by the
// names used in characters.yaml (name_font, dialogue_font); unknown names fall back
// to a built-in bitmap face.
package textlayout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// DefaultSize is the dialogue font size in pixels at scale 1.
const DefaultSize = 18

type faceKey struct {
	name string
	size float64
}

// Fonts holds parsed OpenType fonts by lower-cased name and caches their faces.
type Fonts struct {
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

func NewFonts() *Fonts {
	return &Fonts{fonts: map[string]*opentype.Font{}, faces: map[faceKey]font.Face{}}
}

// LoadDir parses every .ttf and .otf file of dir, named after the file without its
// extension. A missing directory loads nothing; unreadable fonts are returned
// joined while the rest still load.
func LoadDir(dir string) (*Fonts, error) {
	f := NewFonts()
	ents, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read fonts dir: %w", err)
	}
	var errs []error
	for _, e := range ents {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err == nil {
			err = f.Add(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), data)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return f, errors.Join(errs...)
}

// Add parses an OpenType font and registers it under name.
func (f *Fonts) Add(name string, data []byte) error {
	otf, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", name, err)
	}
	f.fonts[strings.ToLower(strings.TrimSpace(name))] = otf
	return nil
}

// Names lists the registered fonts.
func (f *Fonts) Names() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.fonts))
	for n := range f.fonts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Face returns name at size pixels. An empty or unknown name, or a nil Fonts,
// yields the fixed 7x13 bitmap face, which ignores size.
func (f *Fonts) Face(name string, size float64) font.Face {
	if size <= 0 {
		size = DefaultSize
	}
	if f == nil {
		return basicfont.Face7x13
	}
	key := faceKey{strings.ToLower(strings.TrimSpace(name)), size}
	if face, ok := f.faces[key]; ok {
		return face
	}
	otf, ok := f.fonts[key.name]
	if !ok {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	f.faces[key] = face
	return face
}
