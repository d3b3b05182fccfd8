/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package graphic

import (
	"errors"
	"testing"

	"gonovel/internal/asset"
	"gonovel/internal/log"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

type fixture struct {
	sched *transition.Scheduler
	store *asset.MemStore
	rec   *render.Recorder
	mgr   *Manager
}

func newFixture() *fixture {
	f := &fixture{sched: transition.NewScheduler(), store: asset.NewMemStore(), rec: render.NewRecorder()}
	f.mgr = NewManager(f.store, transition.NewController(f.sched), f.rec, log.Discard(), "Background", "bg")
	return f
}

func (f *fixture) settle() {
	for i := 0; i < 200 && f.sched.Len() > 0; i++ {
		f.sched.Tick(0.1)
	}
}

func TestGetPanelIsCaseInsensitive(t *testing.T) {
	f := newFixture()
	p, err := f.mgr.GetPanel("BACKGROUND")
	if err != nil || p.Name != "Background" {
		t.Fatalf("GetPanel = %v, %v", p, err)
	}
	if _, err := f.mgr.GetPanel("sky"); !errors.Is(err, ErrPanelNotFound) {
		t.Fatalf("unknown panel err = %v", err)
	}
	if again := f.mgr.AddPanel("background", "other"); again != p {
		t.Fatalf("re-adding a panel should return the existing one")
	}
	if n := len(f.mgr.Panels()); n != 2 {
		t.Fatalf("Panels() = %d, want 2", n)
	}
}

func TestGetLayer(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	if _, err := p.GetLayer(0, false); !errors.Is(err, ErrLayerNotFound) {
		t.Fatalf("missing layer err = %v", err)
	}
	l, err := p.GetLayer(2, true)
	if err != nil || l.Index != 2 || l.Target() != "panel/bg/layer/2" {
		t.Fatalf("GetLayer create = %+v, %v", l, err)
	}
	if same, _ := p.GetLayer(2, false); same != l {
		t.Fatalf("layer should be reused")
	}
	if _, err := p.GetLayer(-1, true); !errors.Is(err, ErrInvalidLayerIndex) {
		t.Fatalf("negative index err = %v", err)
	}
	p.GetLayer(0, true)
	if ls := p.Layers(); len(ls) != 2 || ls[0].Index != 0 {
		t.Fatalf("Layers() not ordered by index")
	}
}

func TestResolveMedia(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	f.store.AddImage("Graphics/bg/Images/sunset", 16, 9)
	f.store.AddVideo("Graphics/bg/Videos/sunset")
	f.store.AddVideo("Graphics/bg/Videos/rain")
	f.store.AddImage("Shared/logo", 4, 4)

	c, err := f.mgr.ResolveMedia(p, "sunset")
	if err != nil || c.Kind != "image" {
		t.Fatalf("images should win over videos: %+v, %v", c, err)
	}
	c, err = f.mgr.ResolveMedia(p, "rain")
	if err != nil || c.Kind != "video" || c.Path != "Graphics/bg/Videos/rain" {
		t.Fatalf("video fallback = %+v, %v", c, err)
	}
	c, err = f.mgr.ResolveMedia(p, "~/Shared/logo")
	if err != nil || c.Path != "Shared/logo" {
		t.Fatalf("root path = %+v, %v", c, err)
	}
	if _, err := f.mgr.ResolveMedia(p, "missing"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("missing media err = %v", err)
	}
}

func TestResolveBlend(t *testing.T) {
	f := newFixture()
	f.store.AddImage("Graphics/Transition Effects/hurricane", 8, 8)
	if c, err := f.mgr.ResolveBlend(""); err != nil || !c.Empty() {
		t.Fatalf("empty blend = %+v, %v", c, err)
	}
	if c, err := f.mgr.ResolveBlend("hurricane"); err != nil || c.Path != "Graphics/Transition Effects/hurricane" {
		t.Fatalf("blend = %+v, %v", c, err)
	}
	if _, err := f.mgr.ResolveBlend("nope"); !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("missing blend err = %v", err)
	}
}

func TestImmediateSetMedia(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	l, _ := p.GetLayer(0, true)
	img := f.store.AddImage("Graphics/bg/Images/sunset", 16, 9)
	if h := l.SetTexture(img, 0, render.Content{}, true); !h.Done() {
		t.Fatalf("immediate swap should finish at once")
	}
	if c, _ := f.rec.Content("panel/bg/layer/0"); c.Path != img.Path {
		t.Fatalf("content = %+v", c)
	}
	if f.rec.Count("panel/bg/layer/0", "blend") != 0 {
		t.Fatalf("immediate swap must not blend")
	}
}

func TestSupersededMediaTransition(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	l, _ := p.GetLayer(0, true)
	first := f.store.AddImage("Graphics/bg/Images/a", 1, 1)
	second := f.store.AddVideo("Graphics/bg/Videos/b")

	h1 := l.SetTexture(first, 1, render.Content{}, false)
	f.sched.Tick(0.1)
	h2 := l.SetVideo(second, 2, true, render.Content{}, false)
	if !h1.Cancelled() {
		t.Fatalf("first transition should be cancelled")
	}
	f.settle()
	if !h2.Done() || h2.Cancelled() {
		t.Fatalf("second transition should complete")
	}
	if f.rec.Count("panel/bg/layer/0", "content") != 1 {
		t.Fatalf("only the winning transition may set content")
	}
	c := l.Content()
	if c.Kind != "video" || c.Path != second.Path || !c.Audio {
		t.Fatalf("content = %+v", c)
	}
}

func TestClearEmptyLayerIsNoop(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	l, _ := p.GetLayer(0, true)
	for i := 0; i < 2; i++ {
		if h := l.Clear(1, render.Content{}, false); !h.Done() {
			t.Fatalf("clearing an empty layer should be a finished no-op")
		}
	}
	if len(f.rec.Writes) != 0 || !l.Content().Empty() {
		t.Fatalf("clear on empty layer wrote %d values", len(f.rec.Writes))
	}
}

func TestPanelClearAllLayers(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	img := f.store.AddImage("Graphics/bg/Images/a", 1, 1)
	l0, _ := p.GetLayer(0, true)
	l1, _ := p.GetLayer(1, true)
	l2, _ := p.GetLayer(2, true)
	l0.SetTexture(img, 1, render.Content{}, true)
	inflight := l1.SetTexture(img, 1, render.Content{}, false)
	f.sched.Tick(0.1)

	h := p.Clear(1, render.Content{}, false)
	if !inflight.Cancelled() {
		t.Fatalf("clear should supersede the in-flight transition on layer 1")
	}
	if l2.Busy() {
		t.Fatalf("empty layer 2 should not start a transition")
	}
	f.settle()
	if !h.Done() {
		t.Fatalf("panel clear did not finish")
	}
	for _, l := range []*Layer{l0, l1, l2} {
		if !l.Content().Empty() {
			t.Fatalf("layer %d still shows %q", l.Index, l.Content().Path)
		}
	}
}

func TestResetEmptiesPanels(t *testing.T) {
	f := newFixture()
	p, _ := f.mgr.GetPanel("bg")
	l, _ := p.GetLayer(0, true)
	l.SetTexture(f.store.AddImage("Graphics/bg/Images/a", 1, 1), 1, render.Content{}, false)
	f.mgr.Reset()
	if len(p.Layers()) != 0 || l.Busy() {
		t.Fatalf("Reset should drop layers and stop transitions")
	}
}
