/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

func TestWrap(t *testing.T) {
	face := basicfont.Face7x13 // 7 px per rune
	cases := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "hello world", 100, []string{"hello world"}},
		{"breaks at spaces", "hello world foo", 80, []string{"hello world", "foo"}},
		{"every word", "hello world foo", 50, []string{"hello", "world", "foo"}},
		{"long word", "abcdefghij", 35, []string{"abcde", "fghij"}},
		{"newlines", "a\n\nb", 100, []string{"a", "", "b"}},
		{"no width", "a b\nc", 0, []string{"a b", "c"}},
		{"empty", "", 50, []string{""}},
		{"collapses spaces", "a   b", 100, []string{"a b"}},
	}
	for _, c := range cases {
		if got := Wrap(face, c.text, c.width); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%s: Wrap(%q, %d) = %q, want %q", c.name, c.text, c.width, got, c.want)
		}
	}
	if got := Wrap(face, "abc", 3); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("narrower than a rune = %q", got)
	}
}

func TestMetrics(t *testing.T) {
	face := basicfont.Face7x13
	if got := Advance(face, "abc"); got != 21 {
		t.Fatalf("Advance = %d, want 21", got)
	}
	if got := LineHeight(face); got != 13 {
		t.Fatalf("LineHeight = %d, want 13", got)
	}
}

func TestFontsLookup(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "GoRegular.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fonts, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got := fonts.Names(); !reflect.DeepEqual(got, []string{"goregular"}) {
		t.Fatalf("Names = %v", got)
	}
	face := fonts.Face("GoRegular", 24)
	if face == basicfont.Face7x13 {
		t.Fatalf("expected the loaded font")
	}
	if fonts.Face("goregular", 24) != face {
		t.Fatalf("faces should be cached")
	}
	if LineHeight(face) <= LineHeight(fonts.Face("goregular", 12)) {
		t.Fatalf("larger size should have taller lines")
	}
	if fonts.Face("missing", 24) != basicfont.Face7x13 {
		t.Fatalf("unknown names fall back to the bitmap face")
	}
	var none *Fonts
	if none.Face("x", 0) != basicfont.Face7x13 || none.Names() != nil {
		t.Fatalf("nil Fonts should fall back")
	}
}

func TestLoadDirErrors(t *testing.T) {
	if f, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err != nil || len(f.Names()) != 0 {
		t.Fatalf("missing dir = %v, %v", f.Names(), err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.otf"), []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatalf("expected a parse error")
	}
}
