/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package asset is the engine's view of the resource store. Paths are logical,
// slash separated and extension-less ("Characters/Alice/Images/happy"), mirroring the
// resource-folder layout authors already use; stores decide which file backs a path.
package asset

import (
	"errors"
	"image"
	"path"
	"sort"
	"strings"
)

// ErrNotFound is returned when no asset exists at a path.
var ErrNotFound = errors.New("asset not found")

// Image is a loaded still image or sprite.
type Image struct {
	Name   string // base name, used for sprite lookup
	Path   string // logical path
	Width  int
	Height int
	Pixels image.Image
}

// Video is a video clip reference. Decoding is the host's concern.
type Video struct {
	Name string
	Path string
	File string // backing file, relative to the store root
}

// Prefab is an entity template: the ordered renderer layers of a character.
type Prefab struct {
	Name          string   `yaml:"name"`
	Renderers     []string `yaml:"renderers"`
	EnableOnStart bool     `yaml:"enable_on_start"`
}

// Store loads assets by logical path.
type Store interface {
	LoadImage(p string) (*Image, error)
	LoadVideo(p string) (*Video, error)
	// LoadMultiple returns every image directly under prefix, ordered by name.
	// A missing prefix yields an empty slice, not an error.
	LoadMultiple(prefix string) ([]*Image, error)
	LoadPrefab(p string) (*Prefab, error)
}

// Clean normalises a logical path.
func Clean(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// MemStore is an in-memory Store.
type MemStore struct {
	images  map[string]*Image
	videos  map[string]*Video
	prefabs map[string]*Prefab
}

func NewMemStore() *MemStore {
	return &MemStore{
		images:  map[string]*Image{},
		videos:  map[string]*Video{},
		prefabs: map[string]*Prefab{},
	}
}

// AddImage registers an image at p and returns it.
func (m *MemStore) AddImage(p string, w, h int) *Image {
	p = Clean(p)
	img := &Image{Name: path.Base(p), Path: p, Width: w, Height: h}
	m.images[p] = img
	return img
}

// AddVideo registers a video at p and returns it.
func (m *MemStore) AddVideo(p string) *Video {
	p = Clean(p)
	v := &Video{Name: path.Base(p), Path: p, File: p}
	m.videos[p] = v
	return v
}

// AddPrefab registers a prefab at p.
func (m *MemStore) AddPrefab(p string, pf Prefab) {
	p = Clean(p)
	if pf.Name == "" {
		pf.Name = path.Base(p)
	}
	m.prefabs[p] = &pf
}

func (m *MemStore) LoadImage(p string) (*Image, error) {
	if img, ok := m.images[Clean(p)]; ok {
		return img, nil
	}
	return nil, ErrNotFound
}

func (m *MemStore) LoadVideo(p string) (*Video, error) {
	if v, ok := m.videos[Clean(p)]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (m *MemStore) LoadMultiple(prefix string) ([]*Image, error) {
	dir := Clean(prefix)
	var out []*Image
	for p, img := range m.images {
		if path.Dir(p) == dir {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) LoadPrefab(p string) (*Prefab, error) {
	if pf, ok := m.prefabs[Clean(p)]; ok {
		return pf, nil
	}
	return nil, ErrNotFound
}
