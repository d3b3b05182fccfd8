/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package character

import (
	"fmt"
	"log/slog"
	"strings"

	"gonovel/internal/asset"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

const castingSeparator = " as "

// ParseCasting splits "Display as Casting". A plain name is both.
func ParseCasting(name string) (display, casting string) {
	display = strings.TrimSpace(name)
	casting = display
	if i := strings.Index(display, castingSeparator); i >= 0 {
		d := strings.TrimSpace(display[:i])
		c := strings.TrimSpace(display[i+len(castingSeparator):])
		if d != "" {
			display = d
			casting = d
		}
		if c != "" {
			casting = c
		}
	}
	return display, casting
}

// RootPath is the asset root of a casting name.
func RootPath(casting string) string { return "Characters/" + casting }

// PrefabPath is the template path of a casting name.
func PrefabPath(casting string) string {
	return RootPath(casting) + "/Character - [" + casting + "]"
}

// Manager owns the character registry. Keys are the lower-cased display names.
type Manager struct {
	deps
	configs ConfigSource
	chars   map[string]Character
	order   []string
}

// NewManager wires a registry. A nil configs yields default configurations; a nil
// logger logs to slog.Default.
func NewManager(store asset.Store, configs ConfigSource, ctl *transition.Controller, sink render.Sink, logger *slog.Logger) *Manager {
	if configs == nil {
		configs = NewConfigDB()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = render.Discard
	}
	return &Manager{
		deps:    deps{store: store, ctl: ctl, sink: sink, log: logger},
		configs: configs,
		chars:   map[string]Character{},
	}
}

func key(display string) string { return strings.ToLower(display) }

// GetCharacter looks a character up by name (casting syntax allowed). With create
// it is built on first reference.
func (m *Manager) GetCharacter(name string, create bool) (Character, bool) {
	display, _ := ParseCasting(name)
	if c, ok := m.chars[key(display)]; ok {
		return c, true
	}
	if !create {
		return nil, false
	}
	c, err := m.CreateCharacter(name)
	if err != nil {
		return nil, false
	}
	return c, true
}

// CreateCharacter builds and registers a character. An existing name is rejected
// with ErrDuplicateEntity and the existing character is left untouched.
func (m *Manager) CreateCharacter(name string) (Character, error) {
	display, casting := ParseCasting(name)
	if display == "" {
		return nil, fmt.Errorf("create character: empty name")
	}
	k := key(display)
	if _, ok := m.chars[k]; ok {
		m.log.Warn("character already exists, not created", "character", display)
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, display)
	}
	id := Identity{
		DisplayName: display,
		CastingName: casting,
		Config:      m.configs.GetConfig(casting),
		AssetRoot:   RootPath(casting),
		PrefabPath:  PrefabPath(casting),
	}
	d := m.deps
	d.log = m.log.With("character", display)
	var c Character
	switch id.Config.Kind {
	case KindSprite, KindSpriteSheet:
		c = newSprite(d, id, id.Config.Kind, k)
	case KindLive2D, KindModel3D:
		c = newModel(d, id, id.Config.Kind, k)
	default:
		c = newText(d, id, k)
	}
	m.chars[k] = c
	m.order = append(m.order, k)
	return c, nil
}

// Characters returns every character in creation order.
func (m *Manager) Characters() []Character {
	out := make([]Character, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.chars[k])
	}
	return out
}

// Config returns the configuration of an existing character, or the configuration
// its casting name would get.
func (m *Manager) Config(name string) Config {
	if c, ok := m.GetCharacter(name, false); ok {
		return c.Identity().Config
	}
	_, casting := ParseCasting(name)
	return m.configs.GetConfig(casting)
}

// Reset forgets every character.
func (m *Manager) Reset() {
	m.chars = map[string]Character{}
	m.order = nil
}
