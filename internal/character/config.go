/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package character

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"gonovel/internal/render"
)

// Kind selects the runtime variant built for a character.
type Kind string

const (
	KindText        Kind = "text"
	KindSprite      Kind = "sprite"
	KindSpriteSheet Kind = "spritesheet"
	KindLive2D      Kind = "live2d"
	KindModel3D     Kind = "model3d"
)

// ParseKind accepts the kind names case-insensitively, ignoring spaces, dashes and underscores.
func ParseKind(s string) (Kind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(k)
	switch Kind(k) {
	case "":
		return KindText, nil
	case KindText, KindSprite, KindSpriteSheet, KindLive2D, KindModel3D:
		return Kind(k), nil
	}
	return "", fmt.Errorf("unknown character kind %q", s)
}

// Config is the presentation data of one casting name.
type Config struct {
	Name          string
	Alias         string
	Kind          Kind
	NameColor     render.Color
	NameFont      string
	NameScale     float64
	DialogueColor render.Color
	DialogueFont  string
	DialogueScale float64
}

// DefaultConfig is the neutral configuration used for unknown casting names.
func DefaultConfig() Config {
	return Config{
		Kind:          KindText,
		NameColor:     render.White,
		NameScale:     1,
		DialogueColor: render.White,
		DialogueScale: 1,
	}
}

// Style converts the config to the dialogue box styling for a speaker.
func (c Config) Style() render.SpeakerStyle {
	return render.SpeakerStyle{
		NameColor:     c.NameColor,
		NameFont:      c.NameFont,
		NameScale:     c.NameScale,
		DialogueColor: c.DialogueColor,
		DialogueFont:  c.DialogueFont,
		DialogueScale: c.DialogueScale,
	}
}

// ConfigSource resolves configurations by casting name. Unknown names must yield a
// usable default, never an error.
type ConfigSource interface {
	GetConfig(casting string) Config
}

type configEntry struct {
	Name          string  `yaml:"name"`
	Alias         string  `yaml:"alias"`
	Kind          string  `yaml:"kind"`
	NameColor     string  `yaml:"name_color"`
	NameFont      string  `yaml:"name_font"`
	NameScale     float64 `yaml:"name_scale"`
	DialogueColor string  `yaml:"dialogue_color"`
	DialogueFont  string  `yaml:"dialogue_font"`
	DialogueScale float64 `yaml:"dialogue_scale"`
}

type configFile struct {
	Characters []configEntry `yaml:"characters"`
}

// ConfigDB is a ConfigSource backed by a characters.yaml document.
type ConfigDB struct {
	configs map[string]Config
}

// NewConfigDB returns an empty database; every lookup yields DefaultConfig.
func NewConfigDB() *ConfigDB { return &ConfigDB{configs: map[string]Config{}} }

// ParseConfigDB decodes a characters.yaml document.
func ParseConfigDB(data []byte) (*ConfigDB, error) {
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse character configs: %w", err)
	}
	db := NewConfigDB()
	for i, e := range f.Characters {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("character config %d: name is required", i)
		}
		cfg, err := e.toConfig()
		if err != nil {
			return nil, fmt.Errorf("character %q: %w", e.Name, err)
		}
		db.Put(cfg)
	}
	return db, nil
}

// LoadConfigDB reads path. A missing file yields an empty database.
func LoadConfigDB(path string) (*ConfigDB, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfigDB(), nil
	}
	if err != nil {
		return nil, err
	}
	return ParseConfigDB(data)
}

func (e configEntry) toConfig() (Config, error) {
	cfg := DefaultConfig()
	cfg.Name = strings.TrimSpace(e.Name)
	cfg.Alias = e.Alias
	kind, err := ParseKind(e.Kind)
	if err != nil {
		return Config{}, err
	}
	cfg.Kind = kind
	if e.NameColor != "" {
		if cfg.NameColor, err = render.ParseColor(e.NameColor); err != nil {
			return Config{}, err
		}
	}
	if e.DialogueColor != "" {
		if cfg.DialogueColor, err = render.ParseColor(e.DialogueColor); err != nil {
			return Config{}, err
		}
	}
	cfg.NameFont, cfg.DialogueFont = e.NameFont, e.DialogueFont
	if e.NameScale > 0 {
		cfg.NameScale = e.NameScale
	}
	if e.DialogueScale > 0 {
		cfg.DialogueScale = e.DialogueScale
	}
	return cfg, nil
}

// Put adds or replaces a configuration.
func (db *ConfigDB) Put(cfg Config) { db.configs[strings.ToLower(cfg.Name)] = cfg }

// GetConfig returns the configuration for casting, case-insensitively.
func (db *ConfigDB) GetConfig(casting string) Config {
	if cfg, ok := db.configs[strings.ToLower(strings.TrimSpace(casting))]; ok {
		return cfg
	}
	cfg := DefaultConfig()
	cfg.Name = casting
	return cfg
}

// Names lists the configured casting names, sorted.
func (db *ConfigDB) Names() []string {
	out := make([]string, 0, len(db.configs))
	for _, c := range db.configs {
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return out
}
