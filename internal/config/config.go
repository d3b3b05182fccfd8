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
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied on Load.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Engine        EngineConfig  `yaml:"engine"`
	Window        WindowConfig  `yaml:"window"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

// EngineConfig tunes playback. Speeds are multipliers; 1 is the authored pace.
type EngineConfig struct {
	TextSpeed           float64  `yaml:"text_speed"`
	CharactersPerSecond float64  `yaml:"characters_per_second"`
	AutoAdvance         bool     `yaml:"auto_advance"`
	AutoDelaySeconds    float64  `yaml:"auto_delay_seconds"`
	AutoPerCharSeconds  float64  `yaml:"auto_per_char_seconds"`
	TickRate            int      `yaml:"tick_rate"`
	Panels              []string `yaml:"panels"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Engine: EngineConfig{
			TextSpeed:           1,
			CharactersPerSecond: 40,
			AutoAdvance:         false,
			AutoDelaySeconds:    1,
			AutoPerCharSeconds:  0.05,
			TickRate:            60,
			Panels:              []string{"background", "cinematic", "foreground"},
		},
		Window:  WindowConfig{Width: 1280, Height: 720, Title: "GoNovel"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "GNV_CONFIG"
	EnvTelemetryOptIn = "GNV_TELEMETRY_OPT_IN"
	EnvTextSpeed      = "GNV_TEXT_SPEED"
	EnvAutoAdvance    = "GNV_AUTO_ADVANCE"
	EnvTickRate       = "GNV_TICK_RATE"
	EnvLogLevel       = "GNV_LOG_LEVEL"
	EnvLogFormat      = "GNV_LOG_FORMAT"
	EnvLogSource      = "GNV_LOG_SOURCE"
	EnvLogFile        = "GNV_LOG_FILE"
)

// overrides mirrors the env vars above; nil means "not set".
type overrides struct {
	TelemetryOptIn *bool    `env:"GNV_TELEMETRY_OPT_IN"`
	TextSpeed      *float64 `env:"GNV_TEXT_SPEED"`
	AutoAdvance    *bool    `env:"GNV_AUTO_ADVANCE"`
	TickRate       *int     `env:"GNV_TICK_RATE"`
	LogLevel       *string  `env:"GNV_LOG_LEVEL"`
	LogFormat      *string  `env:"GNV_LOG_FORMAT"`
	LogSource      *bool    `env:"GNV_LOG_SOURCE"`
	LogFile        *string  `env:"GNV_LOG_FILE"`
}

// Keyring coordinates for the telemetry upload token.
const (
	keyringService = "GoNovel"
	keyringToken   = "telemetry_token"
)

// TokenStore abstracts the OS keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoNovel")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoNovel")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "gonovel")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment
// overrides. The telemetry token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg, err := LoadFile()
	if err != nil {
		return cfg, "", err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, "", err
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// LoadFile reads the user config file over the defaults without environment
// overrides. Commands that edit and save the file start from it.
func LoadFile() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	var fileCfg AppConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	mergeInto(&cfg, &fileCfg)
	return cfg, nil
}

// Save writes the user config YAML and persists the token into the keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	e := src.Engine
	if e.TextSpeed > 0 {
		dst.Engine.TextSpeed = e.TextSpeed
	}
	if e.CharactersPerSecond > 0 {
		dst.Engine.CharactersPerSecond = e.CharactersPerSecond
	}
	dst.Engine.AutoAdvance = e.AutoAdvance
	if e.AutoDelaySeconds > 0 {
		dst.Engine.AutoDelaySeconds = e.AutoDelaySeconds
	}
	if e.AutoPerCharSeconds > 0 {
		dst.Engine.AutoPerCharSeconds = e.AutoPerCharSeconds
	}
	if e.TickRate > 0 {
		dst.Engine.TickRate = e.TickRate
	}
	if len(e.Panels) > 0 {
		dst.Engine.Panels = append([]string(nil), e.Panels...)
	}

	if src.Window.Width > 0 && src.Window.Height > 0 {
		dst.Window.Width, dst.Window.Height = src.Window.Width, src.Window.Height
	}
	if t := strings.TrimSpace(src.Window.Title); t != "" {
		dst.Window.Title = t
	}

	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) error {
	var ov overrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.TelemetryOptIn != nil {
		cfg.General.TelemetryOptIn = *ov.TelemetryOptIn
	}
	if ov.TextSpeed != nil && *ov.TextSpeed > 0 {
		cfg.Engine.TextSpeed = *ov.TextSpeed
	}
	if ov.AutoAdvance != nil {
		cfg.Engine.AutoAdvance = *ov.AutoAdvance
	}
	if ov.TickRate != nil && *ov.TickRate > 0 {
		cfg.Engine.TickRate = *ov.TickRate
	}
	if ov.LogLevel != nil {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*ov.LogLevel))
	}
	if ov.LogFormat != nil {
		cfg.Logging.Format = strings.ToLower(strings.TrimSpace(*ov.LogFormat))
	}
	if ov.LogSource != nil {
		cfg.Logging.Source = *ov.LogSource
	}
	if ov.LogFile != nil {
		cfg.Logging.File = strings.TrimSpace(*ov.LogFile)
	}
	return nil
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"engine.text_speed":        EnvTextSpeed,
		"engine.auto_advance":      EnvAutoAdvance,
		"engine.tick_rate":         EnvTickRate,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
