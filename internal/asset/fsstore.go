/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"gopkg.in/yaml.v3"
)

var (
	imageExts  = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp"}
	videoExts  = []string{".mp4", ".webm", ".ivf", ".ogv"}
	prefabExts = []string{".yaml", ".yml"}
)

// FSStore loads assets from a file system tree. The first file whose name is the
// logical path plus a known extension wins. Decoded images are cached by path.
type FSStore struct {
	fsys  fs.FS
	cache map[string]*Image
}

// NewFSStore serves assets from the directory root.
func NewFSStore(root string) *FSStore { return NewStoreFS(os.DirFS(root)) }

// NewStoreFS serves assets from any fs.FS (embed.FS, fstest.MapFS, ...).
func NewStoreFS(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys, cache: map[string]*Image{}}
}

func (s *FSStore) find(p string, exts []string) (string, bool) {
	for _, ext := range exts {
		name := p + ext
		if st, err := fs.Stat(s.fsys, name); err == nil && !st.IsDir() {
			return name, true
		}
	}
	return "", false
}

func (s *FSStore) LoadImage(p string) (*Image, error) {
	p = Clean(p)
	if img, ok := s.cache[p]; ok {
		return img, nil
	}
	file, ok := s.find(p, imageExts)
	if !ok {
		return nil, ErrNotFound
	}
	img, err := s.decode(file)
	if err != nil {
		return nil, err
	}
	img.Path = p
	s.cache[p] = img
	return img, nil
}

func (s *FSStore) decode(file string) (*Image, error) {
	f, err := s.fsys.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	px, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	b := px.Bounds()
	base := path.Base(file)
	return &Image{
		Name:   strings.TrimSuffix(base, path.Ext(base)),
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: px,
	}, nil
}

func (s *FSStore) LoadVideo(p string) (*Video, error) {
	p = Clean(p)
	file, ok := s.find(p, videoExts)
	if !ok {
		return nil, ErrNotFound
	}
	return &Video{Name: path.Base(p), Path: p, File: file}, nil
}

func (s *FSStore) LoadMultiple(prefix string) ([]*Image, error) {
	dir := Clean(prefix)
	ents, err := fs.ReadDir(s.fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*Image{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		for _, known := range imageExts {
			if ext == known {
				names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
				break
			}
		}
	}
	sort.Strings(names)
	out := make([]*Image, 0, len(names))
	for _, n := range names {
		img, err := s.LoadImage(path.Join(dir, n))
		if err != nil {
			return out, err
		}
		out = append(out, img)
	}
	return out, nil
}

func (s *FSStore) LoadPrefab(p string) (*Prefab, error) {
	p = Clean(p)
	file, ok := s.find(p, prefabExts)
	if !ok {
		return nil, ErrNotFound
	}
	data, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		return nil, err
	}
	var pf Prefab
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prefab %s: %w", file, err)
	}
	if pf.Name == "" {
		pf.Name = path.Base(p)
	}
	return &pf, nil
}

// Walk lists every asset file under the store with its kind ("image", "video",
// "prefab"). The index builder uses it to catalog a project's resources.
func (s *FSStore) Walk(fn func(logical, kind string) error) error {
	return fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(path.Ext(p))
		logical := strings.TrimSuffix(p, path.Ext(p))
		switch {
		case contains(imageExts, ext):
			return fn(logical, "image")
		case contains(videoExts, ext):
			return fn(logical, "video")
		case contains(prefabExts, ext):
			return fn(logical, "prefab")
		}
		return nil
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
