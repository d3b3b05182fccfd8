/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned for a key that names no setting.
var ErrUnknownKey = errors.New("unknown config key")

// setting reads and writes one field addressed by its dotted YAML path.
type setting struct {
	key string
	get func(c *AppConfig) string
	set func(c *AppConfig, v string) error
}

func boolSetting(key string, field func(c *AppConfig) *bool) setting {
	return setting{
		key: key,
		get: func(c *AppConfig) string { return strconv.FormatBool(*field(c)) },
		set: func(c *AppConfig, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

func intSetting(key string, field func(c *AppConfig) *int) setting {
	return setting{
		key: key,
		get: func(c *AppConfig) string { return strconv.Itoa(*field(c)) },
		set: func(c *AppConfig, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			if n <= 0 {
				return fmt.Errorf("%d is not positive", n)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatSetting(key string, field func(c *AppConfig) *float64) setting {
	return setting{
		key: key,
		get: func(c *AppConfig) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *AppConfig, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			if f <= 0 {
				return fmt.Errorf("%v is not positive", f)
			}
			*field(c) = f
			return nil
		},
	}
}

func stringSetting(key string, field func(c *AppConfig) *string) setting {
	return setting{
		key: key,
		get: func(c *AppConfig) string { return *field(c) },
		set: func(c *AppConfig, v string) error {
			*field(c) = strings.TrimSpace(v)
			return nil
		},
	}
}

var settings = []setting{
	boolSetting("general.telemetry_opt_in", func(c *AppConfig) *bool { return &c.General.TelemetryOptIn }),
	floatSetting("engine.text_speed", func(c *AppConfig) *float64 { return &c.Engine.TextSpeed }),
	floatSetting("engine.characters_per_second", func(c *AppConfig) *float64 { return &c.Engine.CharactersPerSecond }),
	boolSetting("engine.auto_advance", func(c *AppConfig) *bool { return &c.Engine.AutoAdvance }),
	floatSetting("engine.auto_delay_seconds", func(c *AppConfig) *float64 { return &c.Engine.AutoDelaySeconds }),
	floatSetting("engine.auto_per_char_seconds", func(c *AppConfig) *float64 { return &c.Engine.AutoPerCharSeconds }),
	intSetting("engine.tick_rate", func(c *AppConfig) *int { return &c.Engine.TickRate }),
	{
		key: "engine.panels",
		get: func(c *AppConfig) string { return strings.Join(c.Engine.Panels, ",") },
		set: func(c *AppConfig, v string) error {
			var panels []string
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					panels = append(panels, p)
				}
			}
			if len(panels) == 0 {
				return errors.New("at least one panel is required")
			}
			c.Engine.Panels = panels
			return nil
		},
	},
	intSetting("window.width", func(c *AppConfig) *int { return &c.Window.Width }),
	intSetting("window.height", func(c *AppConfig) *int { return &c.Window.Height }),
	stringSetting("window.title", func(c *AppConfig) *string { return &c.Window.Title }),
	stringSetting("logging.level", func(c *AppConfig) *string { return &c.Logging.Level }),
	stringSetting("logging.format", func(c *AppConfig) *string { return &c.Logging.Format }),
	boolSetting("logging.source", func(c *AppConfig) *bool { return &c.Logging.Source }),
	stringSetting("logging.file", func(c *AppConfig) *string { return &c.Logging.File }),
}

func lookup(key string) (setting, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, s := range settings {
		if s.key == k {
			return s, nil
		}
	}
	return setting{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Keys lists the settable keys in display order.
func Keys() []string {
	out := make([]string, len(settings))
	for i, s := range settings {
		out[i] = s.key
	}
	return out
}

// Get formats the value of key.
func Get(cfg AppConfig, key string) (string, error) {
	s, err := lookup(key)
	if err != nil {
		return "", err
	}
	return s.get(&cfg), nil
}

// Set parses value into the field named by key. cfg is unchanged on error.
func Set(cfg *AppConfig, key, value string) error {
	s, err := lookup(key)
	if err != nil {
		return err
	}
	if err := s.set(cfg, value); err != nil {
		return fmt.Errorf("%s: %w", s.key, err)
	}
	return nil
}
