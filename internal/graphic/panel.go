/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package graphic implements graphic panels: named stacks of media layers such as
// the background, cinematic and foreground planes.
package graphic

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"gonovel/internal/asset"
	"gonovel/internal/render"
	"gonovel/internal/transition"
)

var (
	ErrPanelNotFound     = errors.New("panel not found")
	ErrLayerNotFound     = errors.New("layer not found")
	ErrInvalidLayerIndex = errors.New("invalid layer index")
	ErrMediaNotFound     = errors.New("media not found")
)

// DefaultPanels are created when no panel list is configured.
var DefaultPanels = []string{"background", "cinematic", "foreground"}

// crossFadeRate is the blend progress per second at speed 1.
const crossFadeRate = 1.0

// Manager owns the panels of a scene and resolves media for them.
type Manager struct {
	store  asset.Store
	ctl    *transition.Controller
	sink   render.Sink
	log    *slog.Logger
	panels map[string]*Panel
	order  []string
}

// NewManager creates the named panels; each panel's media category is its name.
func NewManager(store asset.Store, ctl *transition.Controller, sink render.Sink, logger *slog.Logger, panels ...string) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = render.Discard
	}
	m := &Manager{store: store, ctl: ctl, sink: sink, log: logger, panels: map[string]*Panel{}}
	for _, p := range panels {
		m.AddPanel(p, p)
	}
	return m
}

// AddPanel registers a panel. Re-adding a name returns the existing panel.
func (m *Manager) AddPanel(name, category string) *Panel {
	k := strings.ToLower(strings.TrimSpace(name))
	if p, ok := m.panels[k]; ok {
		return p
	}
	if category == "" {
		category = name
	}
	p := &Panel{Name: strings.TrimSpace(name), Category: category, key: k, m: m, layers: map[int]*Layer{}}
	m.panels[k] = p
	m.order = append(m.order, k)
	return p
}

// GetPanel finds a panel case-insensitively.
func (m *Manager) GetPanel(name string) (*Panel, error) {
	if p, ok := m.panels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrPanelNotFound, name)
}

// Panels returns the panels in registration order.
func (m *Manager) Panels() []*Panel {
	out := make([]*Panel, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.panels[k])
	}
	return out
}

// Reset empties every panel without transitions.
func (m *Manager) Reset() {
	for _, p := range m.panels {
		for _, l := range p.layers {
			l.media.Stop()
		}
		p.layers = map[int]*Layer{}
	}
}

// Panel is an ordered stack of layers addressed by index.
type Panel struct {
	Name     string
	Category string
	key      string
	m        *Manager
	layers   map[int]*Layer
}

// GetLayer returns the layer at index, creating it when create is set.
func (p *Panel) GetLayer(index int, create bool) (*Layer, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLayerIndex, index)
	}
	if l, ok := p.layers[index]; ok {
		return l, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: panel %s layer %d", ErrLayerNotFound, p.Name, index)
	}
	l := &Layer{
		Index:  index,
		panel:  p,
		target: "panel/" + p.key + "/layer/" + strconv.Itoa(index),
	}
	p.layers[index] = l
	p.m.log.Debug("created layer", "panel", p.Name, "layer", index)
	return l, nil
}

// Layers returns the layers ordered by index.
func (p *Panel) Layers() []*Layer {
	out := make([]*Layer, 0, len(p.layers))
	for _, l := range p.layers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Clear empties every layer. Each layer's own media slot is superseded independently.
func (p *Panel) Clear(speed float64, blend render.Content, immediate bool) *transition.Handle {
	layers := p.Layers()
	hs := make([]*transition.Handle, 0, len(layers))
	for _, l := range layers {
		hs = append(hs, l.Clear(speed, blend, immediate))
	}
	return p.m.ctl.Scheduler().All(hs...)
}

// Layer holds the current media of one panel plane.
type Layer struct {
	Index   int
	panel   *Panel
	target  string
	content render.Content
	blend   render.Content
	media   transition.Slot
}

// Target is the render target of the layer.
func (l *Layer) Target() string { return l.target }

// Content returns the media shown at rest.
func (l *Layer) Content() render.Content { return l.content }

// Blend returns the blend texture of the last transition.
func (l *Layer) Blend() render.Content { return l.blend }

// Busy reports whether a media transition is running.
func (l *Layer) Busy() bool { return l.media.Busy() }

// SetTexture shows a still image.
func (l *Layer) SetTexture(img *asset.Image, speed float64, blend render.Content, immediate bool) *transition.Handle {
	return l.SetMedia(render.Content{Kind: "image", Path: img.Path, Payload: img}, speed, blend, immediate)
}

// SetVideo shows a video clip.
func (l *Layer) SetVideo(v *asset.Video, speed float64, audio bool, blend render.Content, immediate bool) *transition.Handle {
	return l.SetMedia(render.Content{Kind: "video", Path: v.Path, Payload: v, Audio: audio}, speed, blend, immediate)
}

// SetMedia moves the layer to c, cross-fading over 1/speed seconds unless immediate.
func (l *Layer) SetMedia(c render.Content, speed float64, blend render.Content, immediate bool) *transition.Handle {
	l.blend = blend
	if immediate {
		l.media.Stop()
		l.content = c
		l.panel.m.sink.SetContent(l.target, c)
		return transition.Completed()
	}
	speed = transition.Speed(speed)
	sink := l.panel.m.sink
	progress := 0.0
	return l.panel.m.ctl.Begin(&l.media, transition.StepFunc(func(dt float64) bool {
		progress = transition.MoveTowards(progress, 1, crossFadeRate*dt*speed)
		if progress < 1 {
			sink.SetBlend(l.target, c, progress, blend)
			return false
		}
		l.content = c
		sink.SetContent(l.target, c)
		return true
	}))
}

// Clear transitions the layer back to empty. An empty, idle layer is left as is.
func (l *Layer) Clear(speed float64, blend render.Content, immediate bool) *transition.Handle {
	if l.content.Empty() && !l.media.Busy() {
		return transition.Completed()
	}
	return l.SetMedia(render.Content{}, speed, blend, immediate)
}
