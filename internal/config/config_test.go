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
	"os"
	"path/filepath"
	"testing"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error     { delete(m, service+"/"+key); return nil }

// isolate points the config path at a temp file and swaps the keyring for a map.
func isolate(t *testing.T) (string, memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	tokens := memTokens{}
	prev := SetTokenStore(tokens)
	t.Cleanup(func() { SetTokenStore(prev) })
	return path, tokens
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q, want empty", tok)
	}
	want := Defaults()
	if cfg.Engine.CharactersPerSecond != want.Engine.CharactersPerSecond || cfg.Engine.TickRate != want.Engine.TickRate {
		t.Fatalf("engine defaults not applied: %+v", cfg.Engine)
	}
	if len(cfg.Engine.Panels) != 3 || cfg.Engine.Panels[0] != "background" {
		t.Fatalf("default panels = %v", cfg.Engine.Panels)
	}
}

func TestSaveThenLoadRoundTripsFileAndToken(t *testing.T) {
	path, tokens := isolate(t)
	cfg := Defaults()
	cfg.Engine.TextSpeed = 2
	cfg.Engine.Panels = []string{"bg", "fg"}
	cfg.Window.Title = "Demo"
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if tokens[keyringService+"/"+keyringToken] != "secret" {
		t.Fatalf("token not stored in keyring: %v", tokens)
	}

	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "secret" {
		t.Fatalf("token = %q, want secret", tok)
	}
	if got.Engine.TextSpeed != 2 || got.Window.Title != "Demo" {
		t.Fatalf("file values not merged: %+v", got)
	}
	if len(got.Engine.Panels) != 2 || got.Engine.Panels[0] != "bg" {
		t.Fatalf("panels = %v, want [bg fg]", got.Engine.Panels)
	}
}

func TestMalformedFileIsAnError(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("engine: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTextSpeed, "1.5")
	t.Setenv(EnvAutoAdvance, "true")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFile, "/tmp/gnv.log")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.TextSpeed != 1.5 || !cfg.Engine.AutoAdvance {
		t.Fatalf("engine overrides not applied: %+v", cfg.Engine)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.File != "/tmp/gnv.log" {
		t.Fatalf("logging overrides not applied: %+v", cfg.Logging)
	}
	if name, ok := EnvOverrideFor("engine.text_speed"); !ok || name != EnvTextSpeed {
		t.Fatalf("EnvOverrideFor(engine.text_speed) = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("engine.tick_rate"); ok {
		t.Fatalf("tick_rate is not overridden")
	}
}

func TestInvalidEnvValueFailsLoad(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTickRate, "fast")
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric %s", EnvTickRate)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: " Debug "}}
	mergeInto(&dst, &src)
	if dst.Engine.CharactersPerSecond != 40 {
		t.Fatalf("zero engine value overwrote default: %+v", dst.Engine)
	}
	if dst.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", dst.Logging.Level)
	}
}
