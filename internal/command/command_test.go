/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package command

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonovel/internal/asset"
	"gonovel/internal/character"
	"gonovel/internal/graphic"
	"gonovel/internal/log"
	"gonovel/internal/render"
	"gonovel/internal/script"
	"gonovel/internal/transition"
)

type fixture struct {
	sched *transition.Scheduler
	store *asset.MemStore
	rec   *render.Recorder
	db    *character.ConfigDB
	env   *Env
	d     *Dispatcher
}

func newFixture(t *testing.T, exts ...Extension) *fixture {
	t.Helper()
	f := &fixture{
		sched: transition.NewScheduler(),
		store: asset.NewMemStore(),
		rec:   render.NewRecorder(),
		db:    character.NewConfigDB(),
	}
	ctl := transition.NewController(f.sched)
	logger := log.Discard()
	f.env = &Env{
		Characters: character.NewManager(f.store, f.db, ctl, f.rec, logger),
		Panels:     graphic.NewManager(f.store, ctl, f.rec, logger, "bg", "foreground"),
		Scheduler:  f.sched,
		Store:      f.store,
		Log:        logger,
	}
	if len(exts) == 0 {
		exts = []Extension{GraphicPanels{}, Characters{}, General{}}
	}
	f.d = NewDispatcher(NewRegistry(exts...), f.env)
	return f
}

func (f *fixture) run(t *testing.T, line string) (*transition.Handle, error) {
	t.Helper()
	cmd, err := script.ParseCommand(line)
	if err != nil {
		t.Fatalf("ParseCommand(%q): %v", line, err)
	}
	return f.d.Run(cmd)
}

func (f *fixture) settle(t *testing.T, h *transition.Handle) {
	t.Helper()
	for i := 0; i < 1000 && !h.Done(); i++ {
		f.sched.Tick(0.05)
	}
	if !h.Done() {
		t.Fatalf("operation did not finish")
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	h, err := f.run(t, "teleport Alice")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
	if h == nil || !h.Done() {
		t.Fatalf("failed commands must return a finished handle")
	}
	if h := f.d.Dispatch(script.Command{Name: "nope"}); !h.Done() {
		t.Fatalf("Dispatch should swallow the error and return a finished handle")
	}
}

func TestRegistryIsCaseSensitiveAndLastWins(t *testing.T) {
	r := NewRegistry()
	calls := ""
	r.Register("go", func(*Env, []string) (*transition.Handle, error) { calls += "a"; return nil, nil })
	r.Register("go", func(*Env, []string) (*transition.Handle, error) { calls += "b"; return nil, nil })
	d := NewDispatcher(r, &Env{Scheduler: transition.NewScheduler()})
	h, err := d.Run(script.Command{Name: "go"})
	if err != nil || calls != "b" {
		t.Fatalf("last registration should win: calls=%q err=%v", calls, err)
	}
	if !h.Done() {
		t.Fatalf("nil handle should become a finished one")
	}
	if _, err := d.Run(script.Command{Name: "GO"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("lookup must be case-sensitive, err = %v", err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "go" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestSetLayerMediaImmediateCreatesLayer(t *testing.T) {
	f := newFixture(t)
	f.store.AddImage("Graphics/bg/Images/sunset", 16, 9)
	h, err := f.run(t, "setlayermedia -p bg -l 0 -m sunset -i")
	if err != nil {
		t.Fatalf("setlayermedia: %v", err)
	}
	if !h.Done() {
		t.Fatalf("immediate swap should finish at once")
	}
	c, ok := f.rec.Content("panel/bg/layer/0")
	if !ok || c.Path != "Graphics/bg/Images/sunset" {
		t.Fatalf("layer content = %+v", c)
	}
}

func TestImmediateIgnoresUnreadableSpeed(t *testing.T) {
	f := newFixture(t)
	f.store.AddImage("Graphics/bg/Images/sunset", 16, 9)
	h, err := f.run(t, "setlayermedia -p bg -m sunset -spd fast -i")
	if err != nil {
		t.Fatalf("setlayermedia: %v", err)
	}
	if !h.Done() {
		t.Fatalf("immediate swap should finish at once")
	}
	if c, ok := f.rec.Content("panel/bg/layer/0"); !ok || c.Path != "Graphics/bg/Images/sunset" {
		t.Fatalf("layer content = %+v", c)
	}
	if _, err := f.run(t, "clearlayermedia -p bg -l 0 -spd fast -i"); err != nil {
		t.Fatalf("clearlayermedia: %v", err)
	}
	if _, err := f.run(t, "setlayermedia -p bg -m sunset -l x -spd fast -i"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("other parameters still fail, got %v", err)
	}
}

func TestSetLayerMediaTransitionWithVideoAndBlend(t *testing.T) {
	f := newFixture(t)
	f.store.AddVideo("Graphics/foreground/Videos/rain")
	f.store.AddImage("Graphics/Transition Effects/swirl", 8, 8)
	h, err := f.run(t, "setlayermedia -panel Foreground -layer 2 -media rain -speed 4 -blend swirl -audio")
	if err != nil {
		t.Fatalf("setlayermedia: %v", err)
	}
	if h.Done() {
		t.Fatalf("a non-immediate swap should take time")
	}
	f.settle(t, h)
	p, _ := f.env.Panels.GetPanel("foreground")
	l, err := p.GetLayer(2, false)
	if err != nil {
		t.Fatalf("layer 2 should exist: %v", err)
	}
	if c := l.Content(); c.Kind != "video" || !c.Audio {
		t.Fatalf("content = %+v", c)
	}
	if l.Blend().Path != "Graphics/Transition Effects/swirl" {
		t.Fatalf("blend = %+v", l.Blend())
	}
}

func TestSetLayerMediaErrors(t *testing.T) {
	f := newFixture(t)
	f.store.AddImage("Graphics/bg/Images/sunset", 16, 9)
	cases := map[string]error{
		"setlayermedia -p sky -m sunset":         ErrInvalidTarget,
		"setlayermedia -p bg -m nothing":         ErrMediaNotFound,
		"setlayermedia -p bg":                    ErrInvalidParameter,
		"setlayermedia -p bg -m sunset -l two":   ErrInvalidParameter,
		"setlayermedia -p bg -m sunset -spd x":   ErrInvalidParameter,
		"clearlayermedia -p bg -l 3":             ErrInvalidTarget,
		"clearlayermedia -p nowhere":             ErrInvalidTarget,
		"setlayermedia -p bg -m sunset -l -2 -i": ErrInvalidTarget,
	}
	for line, want := range cases {
		h, err := f.run(t, line)
		if !errors.Is(err, want) {
			t.Fatalf("%q: err = %v, want %v", line, err, want)
		}
		if !h.Done() {
			t.Fatalf("%q: failed command should be a no-op", line)
		}
	}
}

func TestMissingBlendFallsBackToPlainFade(t *testing.T) {
	f := newFixture(t)
	f.store.AddImage("Graphics/bg/Images/sunset", 16, 9)
	h, err := f.run(t, "setlayermedia -p bg -m sunset -b missing")
	if err != nil {
		t.Fatalf("missing blend should not fail the command: %v", err)
	}
	f.settle(t, h)
}

func TestClearAllLayers(t *testing.T) {
	f := newFixture(t)
	f.store.AddImage("Graphics/bg/Images/a", 1, 1)
	f.store.AddImage("Graphics/bg/Images/b", 1, 1)
	if _, err := f.run(t, "setlayermedia -p bg -l 0 -m a -i"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	inflight, err := f.run(t, "setlayermedia -p bg -l 1 -m b")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	f.sched.Tick(0.05)

	h, err := f.run(t, "clearlayermedia -p bg -l -1")
	if err != nil {
		t.Fatalf("clearlayermedia: %v", err)
	}
	if !inflight.Cancelled() {
		t.Fatalf("layer 1 transition should be superseded by the clear")
	}
	f.settle(t, h)
	p, _ := f.env.Panels.GetPanel("bg")
	for _, l := range p.Layers() {
		if !l.Content().Empty() {
			t.Fatalf("layer %d not cleared", l.Index)
		}
	}
	again, err := f.run(t, "clearlayermedia -p bg -i")
	if err != nil || !again.Done() {
		t.Fatalf("clearing empty layers should be a finished no-op: %v", err)
	}
}

func TestClearSingleLayer(t *testing.T) {
	f := newFixture(t)
	f.store.AddImage("Graphics/bg/Images/a", 1, 1)
	f.run(t, "setlayermedia -p bg -l 0 -m a -i")
	f.run(t, "setlayermedia -p bg -l 1 -m a -i")
	if _, err := f.run(t, "clearlayermedia -p bg -l 1 -i"); err != nil {
		t.Fatalf("clearlayermedia: %v", err)
	}
	p, _ := f.env.Panels.GetPanel("bg")
	l0, _ := p.GetLayer(0, false)
	l1, _ := p.GetLayer(1, false)
	if l0.Content().Empty() || !l1.Content().Empty() {
		t.Fatalf("only layer 1 should be cleared")
	}
}

func TestCharacterCommands(t *testing.T) {
	f := newFixture(t)
	f.db.Put(character.Config{Name: "Alice", Kind: character.KindSprite})
	f.store.AddPrefab(character.PrefabPath("Alice"), asset.Prefab{Renderers: []string{"body"}})
	f.store.AddImage("Characters/Alice/Images/happy", 4, 4)

	h, err := f.run(t, "createcharacter Alice -e")
	if err != nil {
		t.Fatalf("createcharacter: %v", err)
	}
	f.settle(t, h)
	alice, ok := f.env.Characters.GetCharacter("alice", false)
	if !ok || !alice.Visible() {
		t.Fatalf("-e should reveal the new character")
	}
	if _, err := f.run(t, "createcharacter Alice"); !errors.Is(err, character.ErrDuplicateEntity) {
		t.Fatalf("duplicate create err = %v", err)
	}

	h, _ = f.run(t, "hide Alice Bob -spd 2")
	f.settle(t, h)
	if alice.Visible() {
		t.Fatalf("hide should fade Alice out")
	}
	if _, ok := f.env.Characters.GetCharacter("bob", false); !ok {
		t.Fatalf("hide should create Bob on first reference")
	}
	f.run(t, "show Alice -i")
	if !alice.Visible() {
		t.Fatalf("show -i should be instant")
	}

	h, err = f.run(t, "setcolor Alice -c #00ff00")
	if err != nil {
		t.Fatalf("setcolor: %v", err)
	}
	f.settle(t, h)
	if alice.Color() != (render.Color{G: 1, A: 1}) {
		t.Fatalf("color = %v", alice.Color())
	}
	if _, err := f.run(t, "setcolor Alice -c mauve-ish"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("bad color err = %v", err)
	}

	f.run(t, "unhighlight Alice -i")
	if alice.Highlighted() {
		t.Fatalf("unhighlight should clear the highlight")
	}
	h, _ = f.run(t, "highlight Alice")
	f.settle(t, h)
	if !alice.Highlighted() {
		t.Fatalf("highlight should set the highlight")
	}

	h, err = f.run(t, "setsprite Alice -s happy -spd 3")
	if err != nil {
		t.Fatalf("setsprite: %v", err)
	}
	f.settle(t, h)
	if c, _ := f.rec.Content("character/alice/layer/0"); c.Path != "Characters/Alice/Images/happy" {
		t.Fatalf("sprite content = %+v", c)
	}
	if _, err := f.run(t, "setsprite Alice -s sad"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("missing sprite err = %v", err)
	}
	if _, err := f.run(t, "setsprite Alice -s happy -l 4"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("bad layer err = %v", err)
	}
	if _, err := f.run(t, "setsprite Bob -s happy"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("text character err = %v", err)
	}
	if _, err := f.run(t, "show"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("show without names err = %v", err)
	}
}

func TestWait(t *testing.T) {
	f := newFixture(t)
	h, err := f.run(t, "wait 0.2")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	f.sched.Tick(0.15)
	if h.Done() {
		t.Fatalf("wait finished early")
	}
	f.sched.Tick(0.15)
	if !h.Done() {
		t.Fatalf("wait should be done after 0.2s")
	}
	if h, _ := f.run(t, "wait -t 0"); !h.Done() {
		t.Fatalf("zero wait should finish at once")
	}
	if _, err := f.run(t, "wait soon"); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("bad duration err = %v", err)
	}
}

func TestLuaCommands(t *testing.T) {
	lx := NewLua("", log.Discard())
	lx.AddSource("fx", `
register("flash", function(args)
  dispatch("setlayermedia", "-p", "bg", "-m", args[1], "-spd", 2)
  dispatch("wait", "0.1")
end)
register("broken", function(args)
  error("boom")
end)
`)
	f := newFixture(t, GraphicPanels{}, General{}, lx)
	f.store.AddImage("Graphics/bg/Images/white", 1, 1)

	h, err := f.run(t, "flash white")
	if err != nil {
		t.Fatalf("flash: %v", err)
	}
	if h.Done() {
		t.Fatalf("lua command should wait for what it dispatched")
	}
	f.settle(t, h)
	if c, _ := f.rec.Content("panel/bg/layer/0"); c.Path != "Graphics/bg/Images/white" {
		t.Fatalf("lua dispatch did not reach the panel: %+v", c)
	}
	if _, err := f.run(t, "broken"); err == nil {
		t.Fatalf("a lua error should fail the command")
	}
}

func TestLuaCommandsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	src := `register("pause", function(args) dispatch("wait", args[1]) end)`
	if err := os.WriteFile(filepath.Join(dir, "pause.lua"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("register("), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, General{}, NewLua(dir, log.Discard()))
	if _, ok := f.d.Registry().Lookup("pause"); !ok {
		t.Fatalf("pause should be registered from the directory")
	}
	h, err := f.run(t, "pause 0.1")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.settle(t, h)
}
