/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonovel/internal/config"
	"gonovel/internal/crash"
	"gonovel/internal/storage"
)

const story = `Alice "Hello there"
[setlayermedia -p stage -m sunset -i]
narrator "The sun went down."
Bob as Guard "Halt! [wait 0.1]Who goes?"
`

func cli(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Engine.CharactersPerSecond = 1000
	var out bytes.Buffer
	err := run(context.Background(), args, &out, cfg, nil)
	return out.String(), err
}

// newStory creates a novel with one panel, a script and a background image.
func newStory(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "novel")
	if _, err := cli(t, "init", dir, "Sunset"); err != nil {
		t.Fatalf("init: %v", err)
	}
	ph, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ph.Novel.Panels = []string{"stage"}
	if err := storage.Save(ph); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := storage.WriteScript(context.Background(), ph, "main", story); err != nil {
		t.Fatalf("write script: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{255, 128, 0, 255})
	p := filepath.Join(ph.ResourcesDir(), "Graphics", "stage", "Images", "sunset.png")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVersionAndUsage(t *testing.T) {
	out, err := cli(t, "version")
	if err != nil || !strings.HasPrefix(out, "gonovel ") {
		t.Fatalf("version = %q, %v", out, err)
	}
	out, err = cli(t)
	if err != nil || !strings.Contains(out, "Usage:") {
		t.Fatalf("usage = %q, %v", out, err)
	}
	if _, err := cli(t, "frobnicate"); !errors.Is(err, errUsage) {
		t.Fatalf("unknown command err = %v", err)
	}
	if _, err := cli(t, "init", "only-dir"); !errors.Is(err, errUsage) {
		t.Fatalf("missing argument err = %v", err)
	}
}

func TestOpenPrintsSummary(t *testing.T) {
	dir := newStory(t)
	out, err := cli(t, "open", dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, want := range []string{"Novel: Sunset", "Start: main", "Scripts: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary lacks %q:\n%s", want, out)
		}
	}
}

func TestRunPrintsDialogue(t *testing.T) {
	dir := newStory(t)
	out, err := cli(t, "run", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Alice: Hello there\nThe sun went down.\nBob: Halt! Who goes?\n"
	if out != want {
		t.Fatalf("run output:\n%s\nwant:\n%s", out, want)
	}
	if _, err := cli(t, "run", dir, "missing"); err == nil {
		t.Fatalf("expected an error for a missing script")
	}
}

func TestPlayWithoutWindow(t *testing.T) {
	dir := newStory(t)
	guard := &crash.Guard{}
	err := run(context.Background(), []string{"play", dir}, &bytes.Buffer{}, config.Defaults(), guard)
	if err == nil {
		t.Skip("built with a window host")
	}
	if guard.Project == nil || guard.Where == nil {
		t.Fatalf("crash guard not filled: %+v", guard)
	}
}

func TestIndexSearchAndUses(t *testing.T) {
	dir := newStory(t)
	if out, err := cli(t, "index", dir); err != nil || !strings.Contains(out, "Index rebuilt") {
		t.Fatalf("index = %q, %v", out, err)
	}
	out, err := cli(t, "search", dir, "Halt")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "main:4") || !strings.Contains(out, "1 result(s)") {
		t.Fatalf("search output:\n%s", out)
	}
	out, err = cli(t, "uses", dir, "setlayermedia")
	if err != nil {
		t.Fatalf("uses: %v", err)
	}
	if !strings.Contains(out, "main:2") || !strings.Contains(out, "1 result(s)") {
		t.Fatalf("uses output:\n%s", out)
	}
}

func TestExportPDF(t *testing.T) {
	dir := newStory(t)
	if _, err := cli(t, "export-pdf", dir, "main", "main.pdf"); err != nil {
		t.Fatalf("export-pdf: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "exports", "main.pdf"))
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a PDF")
	}
}

func TestWriteHistoryRevert(t *testing.T) {
	dir := newStory(t)
	src := filepath.Join(t.TempDir(), "new.txt")
	if err := os.WriteFile(src, []byte("narrator \"A quiet night.\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := cli(t, "write", dir, "main.txt", src)
	if err != nil || !strings.Contains(out, "Wrote") {
		t.Fatalf("write: %q %v", out, err)
	}
	out, err = cli(t, "search", dir, "quiet")
	if err != nil || !strings.Contains(out, "main") {
		t.Fatalf("search after write: %q %v", out, err)
	}
	out, err = cli(t, "history", dir, "main")
	if err != nil || !strings.Contains(out, "1 version(s)") || !strings.Contains(out, "4 line(s)") {
		t.Fatalf("history: %q %v", out, err)
	}
	out, err = cli(t, "revert", dir, "main")
	if err != nil || !strings.Contains(out, "Reverted main") {
		t.Fatalf("revert: %q %v", out, err)
	}
	out, err = cli(t, "run", dir, "main")
	if err != nil || !strings.Contains(out, "Hello there") {
		t.Fatalf("run after revert: %q %v", out, err)
	}
	if _, err := cli(t, "revert", dir, "side"); !errors.Is(err, storage.ErrNoHistory) {
		t.Fatalf("revert without history: got %v, want ErrNoHistory", err)
	}
	if _, err := cli(t, "write", dir, "main"); !errors.Is(err, errUsage) {
		t.Fatalf("write without file: got %v, want usage error", err)
	}
}

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(config.EnvConfigPath, path)
	t.Setenv(config.EnvTickRate, "")
	tokens := memTokens{}
	prev := config.SetTokenStore(tokens)
	t.Cleanup(func() { config.SetTokenStore(prev) })

	out, err := cli(t, "config", "set", "engine.tick_rate", "30")
	if err != nil || !strings.Contains(out, path) {
		t.Fatalf("config set: %q %v", out, err)
	}
	fileCfg, err := config.LoadFile()
	if err != nil || fileCfg.Engine.TickRate != 30 {
		t.Fatalf("saved tick rate: got %d (%v), want 30", fileCfg.Engine.TickRate, err)
	}
	if _, err := cli(t, "config", "set", "engine.tick_rate", "fast"); err == nil {
		t.Fatal("config set with a bad value should fail")
	}
	if _, err := cli(t, "config", "set", "engine.nope", "1"); !errors.Is(err, config.ErrUnknownKey) {
		t.Fatalf("unknown key: got %v, want ErrUnknownKey", err)
	}

	t.Setenv(config.EnvTickRate, "90")
	out, err = cli(t, "config", "set", "engine.tick_rate", "45")
	if err != nil || !strings.Contains(out, config.EnvTickRate) {
		t.Fatalf("config set under env override: %q %v", out, err)
	}
	out, err = cli(t, "config")
	if err != nil || !strings.Contains(out, "engine.tick_rate = ") || !strings.Contains(out, "(from "+config.EnvTickRate+")") {
		t.Fatalf("config list: %q %v", out, err)
	}
	out, err = cli(t, "config", "get", "window.title")
	if err != nil || strings.TrimSpace(out) != config.Defaults().Window.Title {
		t.Fatalf("config get: %q %v", out, err)
	}

	if _, err := cli(t, "config", "token", "secret"); err != nil {
		t.Fatalf("config token: %v", err)
	}
	_, tok, err := config.Load()
	if err != nil || tok != "secret" {
		t.Fatalf("token: got %q (%v), want secret", tok, err)
	}
}
